package tenant

import "time"

type Role string

var (
	Admin Role = "admin"
	Staff Role = "staff"
)

func (r Role) String() string {
	switch r {
	case Admin, Staff:
		return string(r)
	default:
		return ""
	}
}

// Tenant is one shop account. Exactly one License row may exist per tenant.
type Tenant struct {
	ID           string     `gorm:"column:id;primaryKey"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
	Username     string     `gorm:"column:username;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash"`
	Role         Role       `gorm:"column:role"`
	ShopName     string     `gorm:"column:shop_name"`
	Slug         string     `gorm:"column:slug"`
	IsActive     bool       `gorm:"column:is_active"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
}

// View is the API shape of a tenant; the password hash never leaves the row.
type View struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	ShopName    string     `json:"shop_name"`
	Slug        string     `json:"slug"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (m *Tenant) ToView() *View {
	return &View{
		ID:          m.ID,
		Username:    m.Username,
		Role:        string(m.Role),
		ShopName:    m.ShopName,
		Slug:        m.Slug,
		IsActive:    m.IsActive,
		LastLoginAt: m.LastLoginAt,
		CreatedAt:   m.CreatedAt,
	}
}
