package license

import (
	"net/http"
	"time"

	"pos-licensing/pkg/errutil"
	"pos-licensing/pkg/middleware"
	"pos-licensing/pkg/timeutil"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type issueBody struct {
	TenantID  string `json:"tenant_id" binding:"required"`
	ShopName  string `json:"shop_name" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

type renewBody struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

func (h *Handler) Issue(c *gin.Context) {
	var body issueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	start, end, err := parseRange(body.StartDate, body.EndDate)
	if err != nil {
		abort(c, err)
		return
	}

	view, err := h.svc.Issue(c.Request.Context(), &IssueRequest{
		TenantID:  body.TenantID,
		ShopName:  body.ShopName,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *Handler) Renew(c *gin.Context) {
	var body renewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	start, end, err := parseRange(body.StartDate, body.EndDate)
	if err != nil {
		abort(c, err)
		return
	}

	view, err := h.svc.Renew(c.Request.Context(), c.Param("tenant_id"), &RenewRequest{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Status serves the caller's own license; admins may read any tenant's.
func (h *Handler) Status(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	claims := middleware.ClaimsFrom(c)
	if claims == nil || (claims.Role != middleware.RoleAdmin && claims.Subject != tenantID) {
		abort(c, errutil.Forbidden("access denied"))
		return
	}

	status, err := h.svc.Status(c.Request.Context(), tenantID)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) List(c *gin.Context) {
	views, err := h.svc.List(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"licenses": views})
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate reads a wall-clock date in the storage offset. Callers sending
// an explicit offset keep it; bare dates are taken as storage-offset local.
func parseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, value, timeutil.StorageLocation)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := parseDate(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errutil.BadRequest("invalid start_date", errutil.WithErr(err))
	}
	end, err := parseDate(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errutil.BadRequest("invalid end_date", errutil.WithErr(err))
	}
	return start, end, nil
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
