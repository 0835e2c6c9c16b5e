package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"pos-licensing/pkg/config"
	"pos-licensing/pkg/errutil"
	"pos-licensing/pkg/middleware"
	"pos-licensing/pkg/timeutil"
	"pos-licensing/services/license"
	"pos-licensing/services/tenant"
	"pos-licensing/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type authHarness struct {
	svc      *Service
	tenants  *tenant.Service
	licenses *license.Repository
	node     *snowflake.Node
	db       *gorm.DB
	now      time.Time
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	db := testutil.NewTestDB(t, &tenant.Tenant{}, &license.License{}, &license.SweepRun{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := timeutil.NowStorage()
	tenants := tenant.NewService(tenant.ServiceParams{DB: db, Node: node})

	// No session backend runs in tests. Every login rejection fires before
	// the session write, so only the happy path ever touches this client.
	unreachable := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})

	svc := &Service{
		tenants:  tenants,
		licenses: license.NewRepository(db),
		sessions: NewSessionStore(unreachable),
		node:     node,
		secret:   "test-secret",
		ttl:      time.Hour,
		now:      func() time.Time { return now },
	}

	return &authHarness{svc: svc, tenants: tenants, licenses: svc.licenses, node: node, db: db, now: now}
}

func (h *authHarness) createTenant(t *testing.T, username, password string) *tenant.Tenant {
	t.Helper()
	created, err := h.tenants.CreateTenant(context.Background(), &tenant.CreateTenantRequest{
		Username: username,
		Password: password,
		ShopName: "Main Street Cafe",
	})
	require.NoError(t, err)
	return created
}

func (h *authHarness) grantLicense(t *testing.T, tenantID string, expiry time.Time, active bool) {
	t.Helper()
	require.NoError(t, h.licenses.Create(context.Background(), &license.License{
		ID:             "lic-" + tenantID,
		TenantID:       tenantID,
		LicenseKey:     "TEST-000000-000000-000000",
		ShopName:       "Main Street Cafe",
		StartDate:      expiry.AddDate(0, -1, 0),
		ExpiryDate:     expiry,
		DurationMonths: 1,
		IsActive:       active,
	}))
}

// Every rejection must be the same error with the same rendered message, so
// a caller cannot probe for account existence or license state.
func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()

	good := h.createTenant(t, "shop-good", "right-pw")
	h.grantLicense(t, good.ID, h.now.Add(time.Hour), true)

	disabled := h.createTenant(t, "shop-disabled", "right-pw")
	h.grantLicense(t, disabled.ID, h.now.Add(time.Hour), true)
	require.NoError(t, h.db.Model(&tenant.Tenant{}).Where("id = ?", disabled.ID).Update("is_active", false).Error)

	h.createTenant(t, "shop-unlicensed", "right-pw")

	inactive := h.createTenant(t, "shop-inactive", "right-pw")
	h.grantLicense(t, inactive.ID, h.now.Add(time.Hour), false)

	expired := h.createTenant(t, "shop-expired", "right-pw")
	h.grantLicense(t, expired.ID, h.now.Add(-time.Minute), true)

	attempts := []struct {
		name     string
		username string
		password string
	}{
		{"unknown username", "nobody", "right-pw"},
		{"wrong password", "shop-good", "wrong-pw"},
		{"disabled account", "shop-disabled", "right-pw"},
		{"no license", "shop-unlicensed", "right-pw"},
		{"inactive license", "shop-inactive", "right-pw"},
		{"expired license", "shop-expired", "right-pw"},
	}

	var messages []string
	for _, a := range attempts {
		t.Run(a.name, func(t *testing.T) {
			_, err := h.svc.Login(ctx, &LoginRequest{Username: a.username, Password: a.password})
			require.Equal(t, invalidCredentials.Error(), err.Error())

			var base errutil.BaseError
			require.True(t, errors.As(err, &base))
			require.Equal(t, errutil.StatusUnauthorized, base.Code)

			messages = append(messages, err.Error())
		})
	}

	for _, msg := range messages {
		require.Equal(t, messages[0], msg)
	}
}

// A valid login makes it past every credential and license check; the only
// failure left is the missing session backend, which must not map to the
// collapsed credential error.
func TestLoginGatePassesWithValidLicense(t *testing.T) {
	h := newAuthHarness(t)

	owner := h.createTenant(t, "shop1", "right-pw")
	h.grantLicense(t, owner.ID, h.now.Add(time.Hour), true)

	_, err := h.svc.Login(context.Background(), &LoginRequest{Username: "shop1", Password: "right-pw"})
	require.Error(t, err)
	require.NotEqual(t, invalidCredentials.Error(), err.Error())

	var base errutil.BaseError
	require.True(t, errors.As(err, &base))
	require.Equal(t, errutil.StatusServiceUnavailable, base.Code)
}

// The expiry re-check uses the clock, not the cached flag: a license the
// sweeper has not yet flipped still rejects once past its expiry date.
func TestLoginRejectsExpiredBeforeSweep(t *testing.T) {
	h := newAuthHarness(t)

	owner := h.createTenant(t, "shop1", "right-pw")
	h.grantLicense(t, owner.ID, h.now.Add(-time.Second), true)

	_, err := h.svc.Login(context.Background(), &LoginRequest{Username: "shop1", Password: "right-pw"})
	require.Equal(t, invalidCredentials.Error(), err.Error())
}

// Full lifecycle: a license issued with a term that has since run out is
// still flagged active until the sweeper's tick reconciles it; after the
// tick the row is inactive and the login gate rejects the tenant with the
// collapsed credential error.
func TestIssuedLicenseLapsesThroughSweepToLockout(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()

	owner := h.createTenant(t, "shop1", "right-pw")

	sweeper := license.NewSweeper(license.SweeperParams{DB: h.db, Node: h.node, Config: &config.Config{}})
	licenses := license.NewService(license.ServiceParams{
		DB:      h.db,
		Tenants: h.tenants,
		Node:    h.node,
		Sweeper: sweeper,
	})

	_, err := licenses.Issue(ctx, &license.IssueRequest{
		TenantID:  owner.ID,
		ShopName:  "Main Street Cafe",
		StartDate: h.now.AddDate(0, -1, 0),
		EndDate:   h.now.Add(-time.Second),
	})
	require.NoError(t, err)

	lic, err := h.licenses.Get(ctx, owner.ID)
	require.NoError(t, err)
	require.True(t, lic.IsActive)

	sweeper.Tick(ctx)

	lic, err = h.licenses.Get(ctx, owner.ID)
	require.NoError(t, err)
	require.False(t, lic.IsActive)

	_, err = h.svc.Login(ctx, &LoginRequest{Username: "shop1", Password: "right-pw"})
	require.Equal(t, invalidCredentials.Error(), err.Error())
}

func TestMintTokenClaims(t *testing.T) {
	h := newAuthHarness(t)

	owner := h.createTenant(t, "shop1", "right-pw")

	signed, err := h.svc.mintToken(owner, "session-42", h.now)
	require.NoError(t, err)

	var claims middleware.SessionClaims
	parsed, err := jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return h.now }))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	require.Equal(t, owner.ID, claims.Subject)
	require.Equal(t, "session-42", claims.ID)
	require.Equal(t, "shop1", claims.Username)
	require.Equal(t, tenant.Staff.String(), claims.Role)
	require.Equal(t, h.now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}
