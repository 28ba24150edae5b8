package blurhasher

import (
	"context"
	"log/slog"
)

// Hook system allows extending pipeline behavior without modifying core code.
// Hooks are called at specific points of a pipeline run.

// Hooks defines all available pipeline hooks
type Hooks struct {
	// BeforeProcess runs after the eligibility filter accepted a file.
	// Returning an error skips the file.
	BeforeProcess []BeforeProcessHook

	// AfterHashComputed runs after encoding, before the hash is written
	AfterHashComputed []AfterHashComputedHook

	// AfterPersist runs after the hash was written
	AfterPersist []AfterPersistHook

	// OnSkip runs when a file is skipped
	OnSkip []SkipHook

	// OnError runs when a stage fails
	OnError []ErrorHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{} // Custom metadata passed between hooks
	StopChain bool                   // Set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// BeforeProcessHook is called before the rendition is fetched
type BeforeProcessHook func(hctx *HookContext, file *File, force bool) error

// AfterHashComputedHook is called once the hash is encoded
type AfterHashComputedHook func(hctx *HookContext, fileID, hash string) error

// AfterPersistHook is called once the hash is stored
type AfterPersistHook func(hctx *HookContext, fileID, hash string) error

// SkipHook is called when the pipeline skips a file
type SkipHook func(hctx *HookContext, fileID string, reason error)

// ErrorHook is called when a stage fails
type ErrorHook func(hctx *HookContext, operation string, err error)

// Merge appends the hooks of other to h
func (h *Hooks) Merge(other *Hooks) {
	if other == nil {
		return
	}
	h.BeforeProcess = append(h.BeforeProcess, other.BeforeProcess...)
	h.AfterHashComputed = append(h.AfterHashComputed, other.AfterHashComputed...)
	h.AfterPersist = append(h.AfterPersist, other.AfterPersist...)
	h.OnSkip = append(h.OnSkip, other.OnSkip...)
	h.OnError = append(h.OnError, other.OnError...)
}

func (h *Hooks) executeBeforeProcess(ctx context.Context, file *File, force bool) error {
	if len(h.BeforeProcess) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforeProcess {
		if err := hook(hctx, file, force); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeAfterHashComputed(ctx context.Context, fileID, hash string) error {
	if len(h.AfterHashComputed) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterHashComputed {
		if err := hook(hctx, fileID, hash); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeAfterPersist(ctx context.Context, fileID, hash string) error {
	if len(h.AfterPersist) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterPersist {
		if err := hook(hctx, fileID, hash); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeOnSkip(ctx context.Context, fileID string, reason error) {
	if len(h.OnSkip) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnSkip {
		hook(hctx, fileID, reason)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnError(ctx context.Context, operation string, err error) {
	if len(h.OnError) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}

// LoggingHook logs persisted hashes, skips and errors at debug level
func LoggingHook(logger *slog.Logger) *Hooks {
	return &Hooks{
		AfterPersist: []AfterPersistHook{
			func(hctx *HookContext, fileID, hash string) error {
				logger.Debug("blurhash stored", "file_id", fileID, "blurhash", hash)
				return nil
			},
		},
		OnSkip: []SkipHook{
			func(hctx *HookContext, fileID string, reason error) {
				logger.Debug("blurhash skipped", "file_id", fileID, "reason", reason)
			},
		},
		OnError: []ErrorHook{
			func(hctx *HookContext, operation string, err error) {
				logger.Debug("blurhash stage failed", "operation", operation, "err", err)
			},
		},
	}
}

// MetricsHook counts pipeline outcomes
func MetricsHook(metrics interface {
	IncrementCounter(name string)
}) *Hooks {
	return &Hooks{
		AfterPersist: []AfterPersistHook{
			func(hctx *HookContext, fileID, hash string) error {
				metrics.IncrementCounter("blurhash.stored")
				return nil
			},
		},
		OnSkip: []SkipHook{
			func(hctx *HookContext, fileID string, reason error) {
				metrics.IncrementCounter("blurhash.skipped")
			},
		},
		OnError: []ErrorHook{
			func(hctx *HookContext, operation string, err error) {
				metrics.IncrementCounter("blurhash.failed." + operation)
			},
		},
	}
}
