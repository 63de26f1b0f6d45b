package exec

import "github.com/komodo-io/komodo-core/internal/logging"

// Severity is an alert's urgency level. Ok is a supplemented addition
// (original_source also emits an Ok alert when a previously-failing
// resource recovers; spec.md's distillation only names Warning/Critical —
// see DESIGN.md "Supplemented features").
type Severity string

const (
	SeverityOk       Severity = "Ok"
	SeverityWarning  Severity = "Warning"
	SeverityCritical Severity = "Critical"
)

// Alert is one alerter-bound notification (spec §4.7/§7, delivery
// transport out of scope per spec Non-goals — only the alert contract
// lives here).
type Alert struct {
	Severity Severity
	Message  string
}

// AlertSink delivers an Alert to whatever transport the deployment wires up
// (webhook, email, chat — out of scope for this module). Tests and
// single-process deployments can supply a sink that just logs.
type AlertSink interface {
	Send(Alert)
}

// raiseCritical routes a Critical alert through the configured sink,
// falling back to a structured log line if no sink is wired — teardown
// failures and similar hard errors must never be silent (spec §4.7
// "teardown failures must never be silent").
func (e *Engine) raiseCritical(message string) {
	e.raise(Alert{Severity: SeverityCritical, Message: message})
}

// raiseOk reports a resource's recovery (supplemented severity).
func (e *Engine) raiseOk(message string) {
	e.raise(Alert{Severity: SeverityOk, Message: message})
}

// raiseWarning reports a non-fatal but noteworthy condition.
func (e *Engine) raiseWarning(message string) {
	e.raise(Alert{Severity: SeverityWarning, Message: message})
}

func (e *Engine) raise(a Alert) {
	if e.alerter != nil {
		e.alerter.Send(a)
		return
	}
	switch a.Severity {
	case SeverityCritical:
		logging.Error(a.Message)
	case SeverityWarning:
		logging.Warn(a.Message)
	default:
		logging.Info(a.Message)
	}
}
