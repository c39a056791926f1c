package eventstream

import "context"

// Publisher publishes capture lifecycle events to an event stream backend.
type Publisher interface {
	PublishCaptureProcessed(ctx context.Context, event *CaptureProcessedEvent) error
	Close() error
}
