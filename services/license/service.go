package license

import (
	"context"
	"errors"
	"time"

	"pos-licensing/pkg/errutil"
	"pos-licensing/pkg/task"
	"pos-licensing/pkg/timeutil"
	"pos-licensing/services/tenant"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	repo    *Repository
	tenants *tenant.Service
	node    *snowflake.Node
	asynq   task.Enqueuer
	sweeper *Sweeper

	now func() time.Time
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Tenants *tenant.Service
	Node    *snowflake.Node
	Sweeper *Sweeper
	Asynq   task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		repo:    NewRepository(p.DB),
		tenants: p.Tenants,
		node:    p.Node,
		asynq:   p.Asynq,
		sweeper: p.Sweeper,
		now:     timeutil.NowStorage,
	}
}

type IssueRequest struct {
	TenantID  string
	ShopName  string
	StartDate time.Time
	EndDate   time.Time
}

type RenewRequest struct {
	StartDate time.Time
	EndDate   time.Time
}

// Issue creates the tenant's one license. The write is a single insert;
// the unique index on tenant_id is what rejects a second license, so a
// concurrent duplicate create still comes back as a conflict.
func (s *Service) Issue(ctx context.Context, req *IssueRequest) (*View, error) {
	span := trace.SpanFromContext(ctx)

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("tenant_id", req.TenantID),
	)

	if !req.EndDate.After(req.StartDate) {
		return nil, errutil.ValidationFailed("end date must be after start date")
	}

	if _, err := s.tenants.GetTenant(ctx, req.TenantID); err != nil {
		return nil, err
	}

	lic := &License{
		ID:             s.node.Generate().String(),
		TenantID:       req.TenantID,
		ShopName:       req.ShopName,
		StartDate:      timeutil.ToStorage(req.StartDate),
		ExpiryDate:     timeutil.ToStorage(req.EndDate),
		DurationMonths: DurationMonths(req.StartDate, req.EndDate),
		IsActive:       true,
	}
	lic.LicenseKey = GenerateKey(req.ShopName, lic.DurationMonths)

	if err := s.repo.Create(ctx, lic); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			zapLog.Warn("license already exists")
			return nil, errutil.Conflict("license already exists for tenant")
		}
		zapLog.Error("failed to issue license", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to create license", errutil.WithErr(err))
	}

	zapLog.Info("license issued",
		zap.String("license_key", lic.LicenseKey),
		zap.Int("duration_months", lic.DurationMonths),
		zap.Time("expiry_date", lic.ExpiryDate),
	)

	s.enqueue(NewIssuedTask(lic), zapLog)

	return lic.ToView(s.now()), nil
}

// Renew overwrites the term and key and forces the license active. Runs in a
// transaction, so the sweeper sees either the fully-old or fully-new row;
// the next tick then reconciles is_active from the new expiry.
func (s *Service) Renew(ctx context.Context, tenantID string, req *RenewRequest) (*View, error) {
	span := trace.SpanFromContext(ctx)

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("tenant_id", tenantID),
	)

	if !req.EndDate.After(req.StartDate) {
		return nil, errutil.ValidationFailed("end date must be after start date")
	}

	months := DurationMonths(req.StartDate, req.EndDate)
	key := GenerateKey("RENEW", months)

	var renewed *License
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.Get(ctx, tenantID)
		if err != nil {
			return errutil.ServiceUnavailable("failed to get license", errutil.WithErr(err))
		}
		if existing == nil {
			return errutil.NotFound("no license found")
		}

		if err := repo.Update(ctx, tenantID, map[string]any{
			"start_date":      timeutil.ToStorage(req.StartDate),
			"expiry_date":     timeutil.ToStorage(req.EndDate),
			"license_key":     key,
			"duration_months": months,
			"is_active":       true,
		}); err != nil {
			return errutil.ServiceUnavailable("failed to renew license", errutil.WithErr(err))
		}

		renewed, err = repo.Get(ctx, tenantID)
		return err
	}); err != nil {
		zapLog.Error("failed to renew license", zap.Error(err))
		return nil, err
	}

	zapLog.Info("license renewed",
		zap.String("license_key", key),
		zap.Int("duration_months", months),
		zap.Time("expiry_date", renewed.ExpiryDate),
	)

	s.enqueue(NewRenewedTask(renewed), zapLog)

	return renewed.ToView(s.now()), nil
}

// Status is the cheap single-row read feeding the client countdown and the
// threshold alerter.
func (s *Service) Status(ctx context.Context, tenantID string) (*Status, error) {
	lic, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to get license", errutil.WithErr(err))
	}
	if lic == nil {
		return nil, errutil.NotFound("no license found")
	}

	return lic.ToStatus(s.now()), nil
}

// List serves the admin listing. A full sweep tick runs first so the
// returned is_active flags reflect the current clock, not the last
// interval tick, and a tenant first flipped here still gets its expiry
// task and SweepRun record. A failed or skipped tick serves the last
// swept state.
func (s *Service) List(ctx context.Context) ([]*View, error) {
	now := s.now()

	s.sweeper.Tick(ctx)

	lics, err := s.repo.List(ctx)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to list licenses", errutil.WithErr(err))
	}

	out := make([]*View, 0, len(lics))
	for _, lic := range lics {
		out = append(out, lic.ToView(now))
	}
	return out, nil
}

func (s *Service) enqueue(t *asynq.Task, zapLog *zap.Logger) {
	if s.asynq == nil {
		return
	}
	if _, err := s.asynq.Enqueue(t); err != nil {
		zapLog.Error("failed to enqueue task", zap.String("task_type", t.Type()), zap.Error(err))
	}
}
