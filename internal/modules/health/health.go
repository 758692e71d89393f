package health

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/thekandidedit/core/internal/config"
	"github.com/thekandidedit/core/internal/pkg/mail"
	"github.com/thekandidedit/core/internal/pkg/response"
	"gorm.io/gorm"
)

const healthTokenHeader = "X-Health-Token"

// Handler serves liveness and provider health probes.
type Handler struct {
	db     *gorm.DB
	sender *mail.Sender
	cfg    *config.AppConfig
}

func NewHandler(db *gorm.DB, sender *mail.Sender, cfg *config.AppConfig) *Handler {
	return &Handler{db: db, sender: sender, cfg: cfg}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/health")
	g.GET("", h.liveness)
	g.GET("/email", h.emailProbe)
}

func (h *Handler) liveness(c *gin.Context) {
	dbOK := true
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		dbOK = false
	}
	response.OK(c, gin.H{"ok": true, "db": dbOK})
}

// emailProbe performs a real provider send to the configured test address.
// It is gated by the health token so it cannot be used to generate mail.
func (h *Handler) emailProbe(c *gin.Context) {
	expected := strings.TrimSpace(h.cfg.Health.Token)
	token := c.GetHeader(healthTokenHeader)
	if token == "" {
		token = c.Query("token")
	}
	if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		response.Unauthorized(c)
		return
	}

	to := strings.TrimSpace(h.cfg.Health.TestEmail)
	if to == "" {
		response.BadRequest(c, "health.test_email is not configured")
		return
	}

	id, err := h.sender.SendTest(c.Request.Context(), to)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true, "id": id})
}
