package license

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pos-licensing/pkg/errutil"
	"pos-licensing/pkg/timeutil"
	"pos-licensing/services/tenant"
	"pos-licensing/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return nil, nil
}

type serviceHarness struct {
	svc      *Service
	tenants  *tenant.Service
	enqueuer *fakeEnqueuer
	db       *gorm.DB
}

func newServiceHarness(t *testing.T, now time.Time) *serviceHarness {
	t.Helper()

	db := testutil.NewTestDB(t, &tenant.Tenant{}, &License{}, &SweepRun{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	tenants := tenant.NewService(tenant.ServiceParams{DB: db, Node: node})
	enqueuer := &fakeEnqueuer{}

	sweeper := &Sweeper{
		db:       db,
		repo:     NewRepository(db),
		node:     node,
		asynq:    enqueuer,
		interval: time.Minute,
		now:      func() time.Time { return now },
		done:     make(chan struct{}),
	}

	svc := NewService(ServiceParams{DB: db, Tenants: tenants, Node: node, Sweeper: sweeper, Asynq: enqueuer})
	svc.now = func() time.Time { return now }

	return &serviceHarness{svc: svc, tenants: tenants, enqueuer: enqueuer, db: db}
}

func (h *serviceHarness) createTenant(t *testing.T, username string) *tenant.Tenant {
	t.Helper()
	created, err := h.tenants.CreateTenant(context.Background(), &tenant.CreateTenantRequest{
		Username: username,
		Password: "s3cret-pw",
		ShopName: "Main Street Cafe",
	})
	require.NoError(t, err)
	return created
}

func statusCode(t *testing.T, err error) errutil.CoreStatus {
	t.Helper()
	var base errutil.BaseError
	require.True(t, errors.As(err, &base), "expected BaseError, got %v", err)
	return base.Code
}

func TestIssueLicense(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, timeutil.StorageLocation)
	h := newServiceHarness(t, now)
	owner := h.createTenant(t, "shop1")

	view, err := h.svc.Issue(context.Background(), &IssueRequest{
		TenantID:  owner.ID,
		ShopName:  "Main Street Cafe",
		StartDate: date(2025, 1, 1),
		EndDate:   date(2025, 4, 15),
	})
	require.NoError(t, err)

	require.Equal(t, owner.ID, view.TenantID)
	require.Equal(t, 3, view.DurationMonths)
	require.Equal(t, "MAIN", view.LicenseKey[:4])
	require.True(t, view.IsActive)
	require.Positive(t, view.MinutesRemaining)

	require.Len(t, h.enqueuer.tasks, 1)
	require.Equal(t, TaskLicenseIssued, h.enqueuer.tasks[0].Type())
}

func TestIssueInvalidRange(t *testing.T) {
	now := timeutil.NowStorage()
	h := newServiceHarness(t, now)
	owner := h.createTenant(t, "shop1")

	_, err := h.svc.Issue(context.Background(), &IssueRequest{
		TenantID:  owner.ID,
		ShopName:  "Main Street Cafe",
		StartDate: date(2025, 4, 15),
		EndDate:   date(2025, 4, 15),
	})
	require.Equal(t, errutil.StatusValidationFailed, statusCode(t, err))
}

func TestIssueUnknownTenant(t *testing.T) {
	h := newServiceHarness(t, timeutil.NowStorage())

	_, err := h.svc.Issue(context.Background(), &IssueRequest{
		TenantID:  "ghost",
		ShopName:  "Nowhere",
		StartDate: date(2025, 1, 1),
		EndDate:   date(2025, 2, 1),
	})
	require.Equal(t, errutil.StatusNotFound, statusCode(t, err))
}

func TestIssueDuplicateTenant(t *testing.T) {
	h := newServiceHarness(t, timeutil.NowStorage())
	owner := h.createTenant(t, "shop1")

	req := &IssueRequest{
		TenantID:  owner.ID,
		ShopName:  "Main Street Cafe",
		StartDate: date(2025, 1, 1),
		EndDate:   date(2025, 2, 1),
	}
	_, err := h.svc.Issue(context.Background(), req)
	require.NoError(t, err)

	_, err = h.svc.Issue(context.Background(), req)
	require.Equal(t, errutil.StatusConflict, statusCode(t, err))
}

func TestRenewOverwritesTermAndKey(t *testing.T) {
	now := time.Date(2025, 4, 20, 12, 0, 0, 0, timeutil.StorageLocation)
	h := newServiceHarness(t, now)
	owner := h.createTenant(t, "shop1")

	issued, err := h.svc.Issue(context.Background(), &IssueRequest{
		TenantID:  owner.ID,
		ShopName:  "Main Street Cafe",
		StartDate: date(2025, 1, 1),
		EndDate:   date(2025, 4, 1),
	})
	require.NoError(t, err)

	// Simulate the sweeper having expired the license.
	require.NoError(t, h.svc.repo.Update(context.Background(), owner.ID, map[string]any{"is_active": false}))

	renewed, err := h.svc.Renew(context.Background(), owner.ID, &RenewRequest{
		StartDate: date(2025, 4, 20),
		EndDate:   date(2025, 10, 20),
	})
	require.NoError(t, err)

	require.True(t, renewed.IsActive)
	require.Equal(t, 6, renewed.DurationMonths)
	require.Equal(t, "RENE", renewed.LicenseKey[:4])
	require.NotEqual(t, issued.LicenseKey, renewed.LicenseKey)
	require.True(t, renewed.ExpiryDate.After(now))

	require.Equal(t, TaskLicenseRenewed, h.enqueuer.tasks[len(h.enqueuer.tasks)-1].Type())
}

func TestRenewMissingLicense(t *testing.T) {
	h := newServiceHarness(t, timeutil.NowStorage())
	owner := h.createTenant(t, "shop1")

	_, err := h.svc.Renew(context.Background(), owner.ID, &RenewRequest{
		StartDate: date(2025, 1, 1),
		EndDate:   date(2025, 2, 1),
	})
	require.Equal(t, errutil.StatusNotFound, statusCode(t, err))
}

func TestStatus(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, timeutil.StorageLocation)
	h := newServiceHarness(t, now)
	owner := h.createTenant(t, "shop1")

	_, err := h.svc.Issue(context.Background(), &IssueRequest{
		TenantID:  owner.ID,
		ShopName:  "Main Street Cafe",
		StartDate: now,
		EndDate:   now.Add(90 * time.Minute),
	})
	require.NoError(t, err)

	status, err := h.svc.Status(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(90), status.MinutesRemaining)
	require.True(t, status.IsActive)

	_, err = h.svc.Status(context.Background(), "ghost")
	require.Equal(t, errutil.StatusNotFound, statusCode(t, err))
}

func TestListSweepsBeforeServing(t *testing.T) {
	now := timeutil.NowStorage()
	h := newServiceHarness(t, now)
	owner := h.createTenant(t, "shop1")

	_, err := h.svc.Issue(context.Background(), &IssueRequest{
		TenantID:  owner.ID,
		ShopName:  "Main Street Cafe",
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
	})
	require.NoError(t, err)

	// Expire the license under the cached flag's nose.
	require.NoError(t, h.svc.repo.Update(context.Background(), owner.ID, map[string]any{
		"expiry_date": now.Add(-time.Minute),
	}))

	views, err := h.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.False(t, views[0].IsActive)
	require.Negative(t, views[0].MinutesRemaining)
}

// A tenant whose license is first flipped by the pre-listing pass must get
// the same expiry notification and audit record a sweeper tick would have
// produced, and the next tick must not double-fire.
func TestListFlipNotifiesExpiredTenant(t *testing.T) {
	now := timeutil.NowStorage()
	h := newServiceHarness(t, now)
	ctx := context.Background()
	owner := h.createTenant(t, "shop1")

	_, err := h.svc.Issue(ctx, &IssueRequest{
		TenantID:  owner.ID,
		ShopName:  "Main Street Cafe",
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, h.svc.repo.Update(ctx, owner.ID, map[string]any{
		"expiry_date": now.Add(-time.Minute),
	}))

	views, err := h.svc.List(ctx)
	require.NoError(t, err)
	require.False(t, views[0].IsActive)

	last := h.enqueuer.tasks[len(h.enqueuer.tasks)-1]
	require.Equal(t, TaskLicenseExpired, last.Type())
	var payload LifecyclePayload
	require.NoError(t, json.Unmarshal(last.Payload(), &payload))
	require.Equal(t, owner.ID, payload.TenantID)

	var runs []SweepRun
	require.NoError(t, h.db.Find(&runs).Error)
	require.Len(t, runs, 1)
	require.Equal(t, int64(1), runs[0].Affected)

	// the interval tick that follows sees nothing left to do
	before := len(h.enqueuer.tasks)
	h.svc.sweeper.Tick(ctx)
	require.Len(t, h.enqueuer.tasks, before)
}
