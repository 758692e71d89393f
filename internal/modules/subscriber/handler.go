package subscriber

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/thekandidedit/core/internal/config"
	"github.com/thekandidedit/core/internal/pkg/emailtoken"
	"github.com/thekandidedit/core/internal/pkg/response"
)

// Handler exposes the lifecycle engine over HTTP.
type Handler struct {
	svc *Service
	cfg *config.AppConfig
}

func NewHandler(svc *Service, cfg *config.AppConfig) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/subscribe", h.subscribe)
	rg.GET("/subscribe/confirm", h.confirm)
	rg.GET("/subscribe", authMW, h.list)

	rg.POST("/unsubscribe", h.unsubscribe)
	rg.GET("/unsubscribe", h.unsubscribeByToken)
	rg.POST("/unsubscribe/one-click", h.oneClick)
	// Mailbox providers occasionally probe the one-click URL with GET.
	rg.GET("/unsubscribe/one-click", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}

// SubscribeDTO is the body of POST /subscribe and POST /unsubscribe.
type SubscribeDTO struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) subscribe(c *gin.Context) {
	var dto SubscribeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "valid email required")
		return
	}

	result, err := h.svc.Subscribe(c.Request.Context(), dto.Email)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	if result.AlreadyActive {
		c.JSON(http.StatusOK, gin.H{
			"ok":            true,
			"alreadyActive": true,
			"message":       "This email is already subscribed.",
		})
		return
	}

	body := gin.H{"ok": true, "sent": result.Sent}
	if h.cfg.IsDev() {
		// Diagnostics only; never expose confirm links in production.
		body["confirmUrl"] = result.ConfirmURL
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) confirm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.redirectResult(c, "/auth/confirm", "error", "", "missing_token")
		return
	}

	email, err := h.svc.Confirm(c.Request.Context(), token)
	if err != nil {
		h.redirectResult(c, "/auth/confirm", "error", "", confirmFailureReason(err))
		return
	}
	h.redirectResult(c, "/auth/confirm", "ok", email, "")
}

func (h *Handler) unsubscribe(c *gin.Context) {
	var dto SubscribeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "valid email required")
		return
	}

	if err := h.svc.Unsubscribe(c.Request.Context(), dto.Email); err != nil {
		response.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) unsubscribeByToken(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.redirectResult(c, "/unsubscribe", "error", "", "missing_token")
		return
	}

	email, err := h.svc.UnsubscribeByToken(c.Request.Context(), token)
	if err != nil {
		h.redirectResult(c, "/unsubscribe", "error", "", confirmFailureReason(err))
		return
	}
	h.redirectResult(c, "/unsubscribe", "ok", email, "")
}

// oneClick is the RFC 8058 receiver. Providers send either JSON
// {"recipient": ...} or form data recipient=...; both are accepted. The
// only client error is an entirely missing recipient; everything else,
// including store failures, is answered 200 so providers do not retry.
func (h *Handler) oneClick(c *gin.Context) {
	recipient := extractRecipient(c)
	if recipient == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing recipient"})
		return
	}

	h.svc.OneClickUnsubscribe(c.Request.Context(), recipient)
	c.JSON(http.StatusOK, gin.H{"ok": true, "accepted": true})
}

func (h *Handler) list(c *gin.Context) {
	subs, err := h.svc.ListSubscribers(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, subs)
}

// redirectResult sends the browser to the public result page. These flows
// are followed from email links by humans, so failures degrade to a
// status/reason query instead of a raw error payload.
func (h *Handler) redirectResult(c *gin.Context, page, status, email, reason string) {
	q := url.Values{}
	q.Set("status", status)
	if email != "" {
		q.Set("email", email)
	}
	if reason != "" {
		q.Set("reason", reason)
	}
	c.Redirect(http.StatusFound, h.cfg.BaseURL()+page+"?"+q.Encode())
}

func confirmFailureReason(err error) string {
	switch {
	case errors.Is(err, emailtoken.ErrExpired):
		return "expired_token"
	case errors.Is(err, emailtoken.ErrMalformed):
		return "invalid_token"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "db"
	}
}

// extractRecipient pulls the recipient address from a one-click callback
// body, tolerating the different shapes mailbox providers send.
func extractRecipient(c *gin.Context) string {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil || len(body) == 0 {
		return ""
	}

	var payload struct {
		Recipient string `json:"recipient"`
	}
	if jsonErr := json.Unmarshal(body, &payload); jsonErr == nil && payload.Recipient != "" {
		return strings.TrimSpace(payload.Recipient)
	}

	if values, formErr := url.ParseQuery(string(body)); formErr == nil {
		return strings.TrimSpace(values.Get("recipient"))
	}
	return ""
}
