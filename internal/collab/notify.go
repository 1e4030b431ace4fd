package collab

import (
	"go.uber.org/zap"
)

// Notifier shows transient cues. Failures are logged, never returned.
type Notifier struct {
	runner Runner
	tools  Tools
	log    *zap.SugaredLogger
}

func NewNotifier(runner Runner, tools Tools, log *zap.SugaredLogger) *Notifier {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Notifier{runner: runner, tools: tools, log: log}
}

// Notify shows title and body without waiting.
func (n *Notifier) Notify(title, body string) {
	n.log.Infow("notify", "title", title, "body", body)
	if _, ok := n.tools["notify"]; !ok {
		return
	}
	if err := n.tools.start(n.runner, "notify", map[string]string{"title": title, "body": body}); err != nil {
		n.log.Debugw("notification failed", "error", err)
	}
}

// Error shows a failure cue.
func (n *Notifier) Error(op string, err error) {
	n.Notify("keyshell: "+op+" failed", err.Error())
}
