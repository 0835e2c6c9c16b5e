package auth

import (
	"context"
	"time"

	"pos-licensing/pkg/config"
	"pos-licensing/pkg/errutil"
	"pos-licensing/pkg/middleware"
	"pos-licensing/pkg/timeutil"
	"pos-licensing/services/license"
	"pos-licensing/services/tenant"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// invalidCredentials is the single collapsed rejection for every login
// failure: wrong password, unknown username, disabled account, missing
// license, inactive license, expired license. Callers must not be able to
// tell these apart from the response.
var invalidCredentials = errutil.Unauthorized("invalid username or password")

type Service struct {
	tenants  *tenant.Service
	licenses *license.Repository
	sessions *SessionStore
	node     *snowflake.Node
	secret   string
	ttl      time.Duration

	now func() time.Time
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Tenants  *tenant.Service
	Sessions *SessionStore
	Node     *snowflake.Node
	Config   *config.Config
}

func NewService(p ServiceParams) *Service {
	ttl := p.Config.Session.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Service{
		tenants:  p.Tenants,
		licenses: license.NewRepository(p.DB),
		sessions: p.Sessions,
		node:     p.Node,
		secret:   p.Config.Session.Secret,
		ttl:      ttl,
		now:      timeutil.NowStorage,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token            string       `json:"token"`
	ExpiryDate       time.Time    `json:"expiry_date"`
	MinutesRemaining int64        `json:"minutes_remaining"`
	User             *tenant.View `json:"user"`
}

// Login verifies credentials and then gates on the license: it must exist,
// be flagged active, and not be past expiry by the clock. The license
// re-check against the clock covers the window between expiry and the next
// sweep tick.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	now := s.now()

	t, err := s.tenants.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, invalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalidCredentials
	}

	if !t.IsActive {
		return nil, invalidCredentials
	}

	lic, err := s.licenses.Get(ctx, t.ID)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to get license", errutil.WithErr(err))
	}
	if lic == nil || !lic.IsActive || !lic.ExpiryDate.After(now) {
		return nil, invalidCredentials
	}

	sessionID := s.node.Generate().String()
	token, err := s.mintToken(t, sessionID, now)
	if err != nil {
		return nil, errutil.Internal("failed to create session", errutil.WithErr(err))
	}

	if err := s.sessions.Put(ctx, t.ID, sessionID, s.ttl); err != nil {
		return nil, errutil.ServiceUnavailable("failed to store session", errutil.WithErr(err))
	}

	if err := s.tenants.TouchLastLogin(ctx, t.ID); err != nil {
		zap.L().Warn("failed to update last login", zap.String("tenant_id", t.ID), zap.Error(err))
	}

	zap.L().Info("login successful", zap.String("tenant_id", t.ID), zap.String("username", t.Username))

	return &LoginResult{
		Token:            token,
		ExpiryDate:       timeutil.ToStorage(lic.ExpiryDate),
		MinutesRemaining: timeutil.MinutesRemaining(lic.ExpiryDate, now),
		User:             t.ToView(),
	}, nil
}

func (s *Service) Logout(ctx context.Context, claims *middleware.SessionClaims) error {
	if err := s.sessions.Delete(ctx, claims.Subject, claims.ID); err != nil {
		return errutil.ServiceUnavailable("failed to end session", errutil.WithErr(err))
	}
	return nil
}

func (s *Service) mintToken(t *tenant.Tenant, sessionID string, now time.Time) (string, error) {
	claims := &middleware.SessionClaims{
		Username: t.Username,
		Role:     string(t.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   t.ID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
}
