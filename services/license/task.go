package license

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TaskLicenseExpired = "license:expired"
	TaskLicenseIssued  = "license:issued"
	TaskLicenseRenewed = "license:renewed"
)

// LifecyclePayload travels on every license lifecycle task.
type LifecyclePayload struct {
	TenantID   string    `json:"tenant_id"`
	LicenseKey string    `json:"license_key"`
	ExpiryDate time.Time `json:"expiry_date"`
}

func NewIssuedTask(lic *License) *asynq.Task {
	return newLifecycleTask(TaskLicenseIssued, lic)
}

func NewRenewedTask(lic *License) *asynq.Task {
	return newLifecycleTask(TaskLicenseRenewed, lic)
}

func NewExpiredTask(tenantID string) *asynq.Task {
	payload, _ := json.Marshal(LifecyclePayload{TenantID: tenantID})
	return asynq.NewTask(TaskLicenseExpired, payload, asynq.Queue("critical"))
}

func newLifecycleTask(taskType string, lic *License) *asynq.Task {
	payload, _ := json.Marshal(LifecyclePayload{
		TenantID:   lic.TenantID,
		LicenseKey: lic.LicenseKey,
		ExpiryDate: lic.ExpiryDate,
	})
	return asynq.NewTask(taskType, payload)
}

// SessionRevoker tears down every live session of a tenant. Implemented by
// the auth session store; optional so the worker degrades to log-only when
// no session backend is wired.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, tenantID string) error
}

type TaskHandler struct {
	revoker SessionRevoker
}

func NewTaskHandler(revoker SessionRevoker) *TaskHandler {
	return &TaskHandler{revoker: revoker}
}

func RegisterHandlers(mux *asynq.ServeMux, h *TaskHandler) {
	mux.HandleFunc(TaskLicenseExpired, h.HandleLicenseExpired)
	mux.HandleFunc(TaskLicenseIssued, h.HandleLifecycleAudit)
	mux.HandleFunc(TaskLicenseRenewed, h.HandleLifecycleAudit)
}

// HandleLicenseExpired revokes the tenant's live sessions. This is the
// server-side complement to the client alerter's teardown: even a client
// that never polls again loses access once the task lands.
func (h *TaskHandler) HandleLicenseExpired(ctx context.Context, t *asynq.Task) error {
	var payload LifecyclePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("tenant_id", payload.TenantID),
	)

	if h.revoker != nil {
		if err := h.revoker.RevokeAll(ctx, payload.TenantID); err != nil {
			zapLog.Error("failed to revoke tenant sessions", zap.Error(err))
			return err
		}
	}

	zapLog.Info("license expired, sessions revoked")
	return nil
}

// HandleLifecycleAudit logs issuance/renewal events for support.
func (h *TaskHandler) HandleLifecycleAudit(ctx context.Context, t *asynq.Task) error {
	var payload LifecyclePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zap.L().Info("license lifecycle event",
		zap.String("task_type", t.Type()),
		zap.String("tenant_id", payload.TenantID),
		zap.String("license_key", payload.LicenseKey),
		zap.Time("expiry_date", payload.ExpiryDate),
	)
	return nil
}
