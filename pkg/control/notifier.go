package control

import (
	"github.com/hypebeast/go-osc/osc"
)

// Notifier publishes job outcomes to the controlling application.
// Implementations must be safe for concurrent use; jobs run in
// parallel.
type Notifier interface {
	// Done reports a finished processing job and the artifact it wrote.
	Done(artifactPath string) error

	// Failed reports a processing job that produced no artifact.
	Failed(reason string) error

	// Dimensions reports a model's latent width, or -1 when the model
	// could not be probed.
	Dimensions(width int) error
}

// OSCNotifier publishes outcomes as single-argument OSC messages over
// UDP.
type OSCNotifier struct {
	client *osc.Client
}

var _ Notifier = (*OSCNotifier)(nil)

// NewOSCNotifier targets host:port with the standard reply topics.
func NewOSCNotifier(host string, port int) *OSCNotifier {
	return &OSCNotifier{client: osc.NewClient(host, port)}
}

func (n *OSCNotifier) Done(artifactPath string) error {
	return n.client.Send(osc.NewMessage(TopicDone, artifactPath))
}

func (n *OSCNotifier) Failed(reason string) error {
	return n.client.Send(osc.NewMessage(TopicError, reason))
}

func (n *OSCNotifier) Dimensions(width int) error {
	return n.client.Send(osc.NewMessage(TopicDimensions, int32(width)))
}
