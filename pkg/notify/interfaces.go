package notify

import "context"

// Notifier sends events to a downstream sink (webhook, SQS, SNS, Pub/Sub).
type Notifier interface {
	ID() string
	Type() string
	Notify(ctx context.Context, evt Event) error
}

// closer is implemented by notifiers holding connections.
type closer interface {
	Close() error
}
