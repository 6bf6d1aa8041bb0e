package recorder

type Status string

const (
	StatusInfo    Status = "info"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// NotificationSink receives fire-and-forget status messages. Notify must not
// block for long; it is called from the goroutine driving the recorder.
type NotificationSink interface {
	Notify(title, description string, status Status)
}

type SinkFunc func(title, description string, status Status)

func (f SinkFunc) Notify(title, description string, status Status) { f(title, description, status) }

type nopSink struct{}

func (nopSink) Notify(string, string, Status) {}

var NopSink NotificationSink = nopSink{}

// MultiSink fans a notification out to every sink in order.
type MultiSink []NotificationSink

func (m MultiSink) Notify(title, description string, status Status) {
	for _, s := range m {
		s.Notify(title, description, status)
	}
}
