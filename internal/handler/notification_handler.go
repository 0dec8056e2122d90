package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursewatch/coursewatch-api/internal/notify"
	"github.com/coursewatch/coursewatch-api/pkg/config"
	"github.com/coursewatch/coursewatch-api/pkg/response"
)

type deliveryTester interface {
	TestDelivery(ctx context.Context) []notify.ChannelResult
}

// NotificationHandler serves delivery testing and the effective
// channel configuration.
type NotificationHandler struct {
	engine deliveryTester
	cfg    config.NotifyConfig
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(engine deliveryTester, cfg config.NotifyConfig) *NotificationHandler {
	return &NotificationHandler{engine: engine, cfg: cfg}
}

type channelOutcome struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Test godoc
// @Summary Send a test notification through every enabled channel
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/test [post]
func (h *NotificationHandler) Test(c *gin.Context) {
	results := h.engine.TestDelivery(c.Request.Context())

	outcomes := make([]channelOutcome, 0, len(results))
	for _, result := range results {
		outcome := channelOutcome{Channel: result.Channel, Success: result.Err == nil}
		if result.Err != nil {
			outcome.Error = result.Err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	response.JSON(c, http.StatusOK, gin.H{"channels": outcomes}, nil)
}

// Preferences godoc
// @Summary Show the effective notification channel configuration
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /preferences/notifications [get]
func (h *NotificationHandler) Preferences(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{
		"email": gin.H{
			"enabled":   h.cfg.Email.Enabled,
			"smtp_host": h.cfg.Email.SMTPHost,
			"smtp_port": h.cfg.Email.SMTPPort,
			"from":      h.cfg.Email.From,
			"to":        h.cfg.Email.To,
		},
		"sms": gin.H{
			"enabled":     h.cfg.SMS.Enabled,
			"account_sid": maskTail(h.cfg.SMS.AccountSID, 4),
			"phone_to":    maskTail(h.cfg.SMS.PhoneTo, 4),
		},
		"webhook": gin.H{
			"enabled": h.cfg.Webhook.Enabled,
			"url":     h.cfg.Webhook.URL,
		},
	}, nil)
}

// maskTail hides all but the last n characters of a secret.
func maskTail(s string, n int) string {
	if s == "" {
		return ""
	}
	if len(s) <= n {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-n) + s[len(s)-n:]
}
