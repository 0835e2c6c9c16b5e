package license

import (
	"time"

	"pos-licensing/pkg/timeutil"

	"gorm.io/datatypes"
)

// License grants one tenant timed access. StartDate and ExpiryDate are
// persisted in the storage offset; ExpiryDate is authoritative for expiry,
// IsActive is a cache reconciled by the sweeper. DurationMonths is the
// human-facing term length and takes no part in expiry math.
type License struct {
	ID             string    `gorm:"column:id;primaryKey"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
	TenantID       string    `gorm:"column:tenant_id;uniqueIndex"`
	LicenseKey     string    `gorm:"column:license_key"`
	ShopName       string    `gorm:"column:shop_name"`
	StartDate      time.Time `gorm:"column:start_date"`
	ExpiryDate     time.Time `gorm:"column:expiry_date"`
	DurationMonths int       `gorm:"column:duration_months"`
	IsActive       bool      `gorm:"column:is_active"`
}

// SweepRun records one sweep tick that changed at least one row.
type SweepRun struct {
	ID             string         `gorm:"column:id;primaryKey"`
	RanAt          time.Time      `gorm:"column:ran_at"`
	Affected       int64          `gorm:"column:affected"`
	ExpiredTenants datatypes.JSON `gorm:"column:expired_tenants"`
}

// Status is the read-only shape served to the owning tenant.
type Status struct {
	TenantID         string    `json:"tenant_id"`
	LicenseKey       string    `json:"license_key"`
	ExpiryDate       time.Time `json:"expiry_date"`
	IsActive         bool      `json:"is_active"`
	MinutesRemaining int64     `json:"minutes_remaining"`
}

func (m *License) ToStatus(now time.Time) *Status {
	return &Status{
		TenantID:         m.TenantID,
		LicenseKey:       m.LicenseKey,
		ExpiryDate:       timeutil.ToStorage(m.ExpiryDate),
		IsActive:         m.IsActive,
		MinutesRemaining: timeutil.MinutesRemaining(m.ExpiryDate, now),
	}
}

// View extends Status with the issuance fields the admin listing shows.
type View struct {
	Status
	ShopName       string    `json:"shop_name"`
	StartDate      time.Time `json:"start_date"`
	DurationMonths int       `json:"duration_months"`
}

func (m *License) ToView(now time.Time) *View {
	return &View{
		Status:         *m.ToStatus(now),
		ShopName:       m.ShopName,
		StartDate:      timeutil.ToStorage(m.StartDate),
		DurationMonths: m.DurationMonths,
	}
}
