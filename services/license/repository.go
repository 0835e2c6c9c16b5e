package license

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository is the one owner of license rows. Every flag write is a single
// bulk statement, so readers never observe a half-updated row; multi-step
// flows (renewal, the sweep) run inside transactions.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Get returns (nil, nil) when the tenant holds no license.
func (r *Repository) Get(ctx context.Context, tenantID string) (*License, error) {
	var lic License
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&lic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lic, nil
}

func (r *Repository) Create(ctx context.Context, lic *License) error {
	return r.db.WithContext(ctx).Create(lic).Error
}

// Update applies a partial update to the tenant's license row.
func (r *Repository) Update(ctx context.Context, tenantID string, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&License{}).
		Where("tenant_id = ?", tenantID).
		Updates(fields).Error
}

func (r *Repository) List(ctx context.Context) ([]*License, error) {
	var out []*License
	if err := r.db.WithContext(ctx).Order("expiry_date asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SweepUpdate reconciles is_active with expiry_date for every row. The
// predicate restricts the write to rows whose cached flag disagrees with
// the clock, which makes the sweep idempotent and lets a renewal flip a
// row back to active on the next tick. The rows about to flip are read
// before the bulk statement so the expired tenant ids come back on every
// dialect; the write itself re-checks the same predicate, so a renewal
// landing between the two statements keeps its row. Returns the number of
// rows changed and the tenant ids that just went inactive.
func (r *Repository) SweepUpdate(ctx context.Context, now time.Time) (int64, []string, error) {
	var affected int64
	var expired []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var flipping []License
		if err := tx.Where("is_active <> (expiry_date > ?)", now).Find(&flipping).Error; err != nil {
			return err
		}

		res := tx.Model(&License{}).
			Where("is_active <> (expiry_date > ?)", now).
			Update("is_active", gorm.Expr("expiry_date > ?", now))
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected

		candidates := make([]string, 0, len(flipping))
		for _, lic := range flipping {
			if lic.IsActive {
				candidates = append(candidates, lic.TenantID)
			}
		}
		if len(candidates) == 0 {
			return nil
		}

		// re-read so a tenant renewed mid-sweep is not reported expired
		return tx.Model(&License{}).
			Where("tenant_id IN ? AND is_active = ?", candidates, false).
			Pluck("tenant_id", &expired).Error
	})
	if err != nil {
		return 0, nil, err
	}

	return affected, expired, nil
}
