package tenant

import (
	"context"
	"errors"

	"pos-licensing/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
	}
}

type CreateTenantRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	ShopName string `json:"shop_name" binding:"required"`
	Role     string `json:"role"`
}

func (s *Service) CreateTenant(ctx context.Context, req *CreateTenantRequest) (*Tenant, error) {
	span := trace.SpanFromContext(ctx)

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("username", req.Username),
	)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		zapLog.Error("failed to hash password", zap.Error(err))
		return nil, errutil.Internal("failed to create tenant", errutil.WithErr(err))
	}

	role := Role(req.Role)
	if role.String() == "" {
		role = Staff
	}

	t := &Tenant{
		ID:           s.node.Generate().String(),
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
		ShopName:     req.ShopName,
		Slug:         slug.Make(req.ShopName),
		IsActive:     true,
	}

	// the unique index on username rejects duplicates, concurrent
	// creates included
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			zapLog.Warn("tenant already exists")
			return nil, errutil.Conflict("username already exists")
		}
		zapLog.Error("failed to create tenant", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to create tenant", errutil.WithErr(err))
	}

	zapLog.Info("tenant created", zap.String("tenant_id", t.ID), zap.String("slug", t.Slug))
	return t, nil
}

func (s *Service) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	var t Tenant
	err := s.db.WithContext(ctx).Where("id = ?", tenantID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("tenant not found")
	}
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to get tenant", errutil.WithErr(err))
	}
	return &t, nil
}

// FindByUsername returns (nil, nil) for an unknown username; the login gate
// collapses that case into its generic rejection.
func (s *Service) FindByUsername(ctx context.Context, username string) (*Tenant, error) {
	var t Tenant
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to get tenant", errutil.WithErr(err))
	}
	return &t, nil
}

func (s *Service) TouchLastLogin(ctx context.Context, tenantID string) error {
	return s.db.WithContext(ctx).
		Model(&Tenant{}).
		Where("id = ?", tenantID).
		Update("last_login_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}
