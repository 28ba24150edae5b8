package blurhasher

import (
	"context"
	"log/slog"
)

// Host lifecycle events the service subscribes to.
const (
	EventInit        = "app.after"
	EventFilesUpload = "files.upload"
	EventFilesUpdate = "files.update"
)

// ActionMeta describes a host action event. Upload events carry Key,
// update events carry Keys.
type ActionMeta struct {
	Event      string   `json:"event"`
	Collection string   `json:"collection,omitempty"`
	Key        string   `json:"key,omitempty"`
	Keys       []string `json:"keys,omitempty"`
}

// InitHandler runs once when the host reaches an initialization stage
type InitHandler func(ctx context.Context)

// ActionHandler runs after the host completed an action
type ActionHandler func(ctx context.Context, meta ActionMeta)

// Registry is the event subscription capability of the host
type Registry interface {
	Init(event string, handler InitHandler)
	Action(event string, handler ActionHandler)
}

// Register subscribes svc to the host events: schema bootstrap on init,
// forced processing on upload and fill-in processing on update.
func Register(reg Registry, svc Service, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	reg.Init(EventInit, func(ctx context.Context) {
		if err := svc.Bootstrap(ctx); err != nil {
			logger.Error("blurhash field bootstrap failed", "err", err)
		}
	})

	reg.Action(EventFilesUpload, func(ctx context.Context, meta ActionMeta) {
		if meta.Key == "" {
			logger.Warn("upload event without key", "event", meta.Event)
			return
		}
		svc.HandleUpload(ctx, meta.Key)
	})

	reg.Action(EventFilesUpdate, func(ctx context.Context, meta ActionMeta) {
		keys := meta.Keys
		if len(keys) == 0 && meta.Key != "" {
			keys = []string{meta.Key}
		}
		svc.HandleUpdate(ctx, keys)
	})
}
