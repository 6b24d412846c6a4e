package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/huangang/cipulse/internal/github"
	"github.com/huangang/cipulse/pkg/logger"
)

// AlertSender is the notifier boundary the webhook path depends on.
type AlertSender interface {
	SendAlert(subject, htmlBody string) (string, error)
}

// WorkflowRunEvent is the envelope of a GitHub workflow_run webhook delivery.
type WorkflowRunEvent struct {
	Action      string              `json:"action"`
	WorkflowRun *github.WorkflowRun `json:"workflow_run"`
}

// WebhookService turns verified workflow_run deliveries into failure alerts.
type WebhookService struct {
	mailer AlertSender
}

func NewWebhookService(mailer AlertSender) *WebhookService {
	return &WebhookService{mailer: mailer}
}

// VerifyGitHubSignature checks the X-Hub-Signature-256 header against an
// HMAC-SHA256 of the raw body. An empty secret means verification is not
// configured and every delivery is accepted; that is a deliberate trust
// decision, not a fallback. Comparison is constant time via hmac.Equal,
// and a malformed or missing header short-circuits to not-equal.
func VerifyGitHubSignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature[7:]), []byte(expectedMAC))
}

// alertClass resolves the outcome used for failure classification:
// the conclusion when the run is terminal, the status otherwise.
func alertClass(run *github.WorkflowRun) string {
	if run.Conclusion != "" {
		return run.Conclusion
	}
	return run.Status
}

// ProcessWorkflowRunEvent dispatches exactly one alert when the run's
// outcome is failure-class, and does nothing otherwise. The returned
// dispatched flag distinguishes an ignored event from a sent alert.
func (s *WebhookService) ProcessWorkflowRunEvent(event *WorkflowRunEvent) (dispatched bool, messageID string, err error) {
	run := event.WorkflowRun
	outcome := alertClass(run)
	if !IsFailureConclusion(outcome) {
		logger.Debug().
			Int64("run_id", run.ID).
			Str("outcome", outcome).
			Msg("webhook run is not failure-class, ignoring")
		return false, "", nil
	}

	subject := fmt.Sprintf("[CI Alert] %s: %s on %s", run.Name, outcome, run.HeadBranch)
	messageID, err = s.mailer.SendAlert(subject, buildAlertBody(run, outcome))
	if err != nil {
		return false, "", err
	}

	logger.Info().
		Int64("run_id", run.ID).
		Str("workflow", run.Name).
		Str("outcome", outcome).
		Str("message_id", messageID).
		Msg("failure alert dispatched")
	return true, messageID, nil
}

func buildAlertBody(run *github.WorkflowRun, outcome string) string {
	var sb strings.Builder

	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	sb.WriteString("<h2>🚨 CI Workflow Failed</h2>")
	sb.WriteString("<table style=\"border-collapse: collapse; margin-bottom: 20px;\">")

	rows := []struct{ label, value string }{
		{"Workflow", run.Name},
		{"Outcome", outcome},
		{"Branch", run.HeadBranch},
		{"Commit", run.HeadSHA},
		{"Actor", run.Actor.Login},
		{"Event", run.Event},
	}

	for _, r := range rows {
		if r.value == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("<tr><td style=\"padding: 8px; border: 1px solid #ddd; font-weight: bold;\">%s</td><td style=\"padding: 8px; border: 1px solid #ddd;\">%s</td></tr>", r.label, r.value))
	}
	sb.WriteString("</table>")

	if run.HTMLURL != "" {
		sb.WriteString(fmt.Sprintf("<p><a href=\"%s\">View run</a></p>", run.HTMLURL))
	}

	sb.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">Powered by cipulse</p>")
	sb.WriteString("</body></html>")

	return sb.String()
}
