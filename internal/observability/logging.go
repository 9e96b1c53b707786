package observability

import (
	"log/slog"

	"github.com/comigor/amy/internal/conversation"
)

// promptPreview is how much of a system prompt is logged.
const promptPreview = 50

// Abbreviate shortens s to n runes followed by " [...]".
func Abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + " [...]"
}

// LogObserver logs every transition at debug level, and provider failures at
// warn level.
func LogObserver(l *slog.Logger) conversation.Observer {
	return func(t conversation.Transition) {
		attrs := []any{
			"session_id", t.SessionID,
			"from", t.From,
			"to", t.To,
			"trigger", t.Trigger,
			"history_len", t.HistoryLen,
		}
		if t.Appended != nil {
			attrs = append(attrs, "role", t.Appended.Role, "content", t.Appended.Content)
		}
		if t.Elapsed > 0 {
			attrs = append(attrs, "elapsed", t.Elapsed)
		}
		if t.Err != nil {
			l.Warn("Transition carried an error", append(attrs, "error", t.Err)...)
			return
		}
		l.Debug("Transition", attrs...)
	}
}

// LogTranscript logs history one message per record. System prompts are
// abbreviated.
func LogTranscript(l *slog.Logger, sessionID string, history []conversation.Message) {
	for i, m := range history {
		content := m.Content
		if m.Role == conversation.RoleSystem {
			content = Abbreviate(content, promptPreview)
		}
		l.Info("Transcript", "session_id", sessionID, "index", i, "role", m.Role, "content", content)
	}
}
