package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-blurhash/pkg/blurhasher"
)

// Dispatcher delivers host events to registered handlers
type Dispatcher interface {
	EmitInit(ctx context.Context, event string) int
	EmitAction(ctx context.Context, meta blurhasher.ActionMeta) int
	HasHandler(event string) bool
}

// HookRequest is the request body posted by the host for an event
type HookRequest struct {
	Key        string   `json:"key,omitempty"`
	Keys       []string `json:"keys,omitempty"`
	Collection string   `json:"collection,omitempty"`
}

// HookResponse acknowledges an accepted event
type HookResponse struct {
	Event    string `json:"event"`
	Accepted bool   `json:"accepted"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// WebhookHandler receives host events over HTTP
type WebhookHandler struct {
	dispatcher  Dispatcher
	logger      *slog.Logger
	tokenAuth   *jwtauth.JWTAuth
	synchronous bool
	inflight    sync.WaitGroup
}

// Option configures a WebhookHandler
type Option func(*WebhookHandler)

// WithJWTSecret requires an HS256 bearer token on hook routes
func WithJWTSecret(secret string) Option {
	return func(h *WebhookHandler) {
		if secret != "" {
			h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
		}
	}
}

// WithSynchronousDispatch runs handlers before responding
func WithSynchronousDispatch() Option {
	return func(h *WebhookHandler) {
		h.synchronous = true
	}
}

// WithLogger sets the handler logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *WebhookHandler) {
		h.logger = logger
	}
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(dispatcher Dispatcher, options ...Option) *WebhookHandler {
	h := &WebhookHandler{
		dispatcher: dispatcher,
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// Routes returns the webhook routes
func (h *WebhookHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		if h.tokenAuth != nil {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)
		}
		r.Post("/hooks/{event}", h.HandleHook)
	})

	return r
}

// Health reports that the process is serving
func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// HandleHook accepts an event and dispatches it. The response does not wait
// for the pipeline unless synchronous dispatch is configured.
func (h *WebhookHandler) HandleHook(w http.ResponseWriter, r *http.Request) {
	event := strings.TrimSpace(chi.URLParam(r, "event"))
	if !h.dispatcher.HasHandler(event) {
		h.writeError(w, r, http.StatusNotFound, errors.New("unknown event: "+event))
		return
	}

	// An empty body, sized or chunked, is an empty request.
	var req HookRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid hook payload", "event", event, "err", err)
		h.writeError(w, r, http.StatusBadRequest, errors.New("invalid JSON payload"))
		return
	}

	if event != blurhasher.EventInit && req.Key == "" && len(req.Keys) == 0 {
		h.writeError(w, r, http.StatusBadRequest, errors.New("key or keys is required"))
		return
	}

	meta := blurhasher.ActionMeta{
		Event:      event,
		Collection: req.Collection,
		Key:        req.Key,
		Keys:       req.Keys,
	}

	ctx := context.WithoutCancel(r.Context())
	if h.synchronous {
		h.dispatch(ctx, meta)
	} else {
		h.inflight.Add(1)
		go func() {
			defer h.inflight.Done()
			h.dispatch(ctx, meta)
		}()
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, HookResponse{Event: event, Accepted: true})
}

// Wait blocks until every background dispatch has returned
func (h *WebhookHandler) Wait() {
	h.inflight.Wait()
}

func (h *WebhookHandler) dispatch(ctx context.Context, meta blurhasher.ActionMeta) {
	if meta.Event == blurhasher.EventInit {
		h.dispatcher.EmitInit(ctx, meta.Event)
		return
	}
	n := h.dispatcher.EmitAction(ctx, meta)
	h.logger.Debug("hook dispatched", "event", meta.Event, "handlers", n)
}

func (h *WebhookHandler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}
