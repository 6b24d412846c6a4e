package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/cipulse/internal/services"
	"github.com/huangang/cipulse/pkg/logger"
)

// WebhookHandler terminates the inbound GitHub webhook path. Order matters:
// the route is rate limited by middleware, then the signature is verified
// over the exact raw body, then the event is classified.
type WebhookHandler struct {
	service *services.WebhookService
	secret  string
}

func NewWebhookHandler(service *services.WebhookService, secret string) *WebhookHandler {
	return &WebhookHandler{service: service, secret: secret}
}

// HandleGitHubWebhook responds 401 on a bad signature, 400 on a malformed
// payload, 204 when the event is not alert-worthy, 202 once an alert is
// dispatched, and 500 when delivery to the notifier fails.
func (h *WebhookHandler) HandleGitHubWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "failed to read request body"})
		return
	}

	if !services.VerifyGitHubSignature(h.secret, body, c.GetHeader("X-Hub-Signature-256")) {
		logger.Warn().Str("ip", c.ClientIP()).Msg("webhook signature verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid webhook signature"})
		return
	}

	if c.GetHeader("X-GitHub-Event") != "workflow_run" {
		c.Status(http.StatusNoContent)
		return
	}

	var event services.WorkflowRunEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON payload"})
		return
	}
	if event.WorkflowRun == nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing workflow_run payload"})
		return
	}

	dispatched, messageID, err := h.service.ProcessWorkflowRunEvent(&event)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !dispatched {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"ok": true, "messageId": messageID})
}
