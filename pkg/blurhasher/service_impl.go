package blurhasher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// service implements the Service interface
type service struct {
	files     FileServiceFactory
	assets    AssetServiceFactory
	fields    FieldServiceFactory
	decoder   Decoder
	hooks     *Hooks
	logger    *slog.Logger
	rendition RenditionOptions
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithFileService sets a long-lived file service
func WithFileService(files FileService) Option {
	return func(s *service) {
		s.files = func(context.Context) (FileService, error) { return files, nil }
	}
}

// WithFileServiceFactory sets a factory invoked once per pipeline run
func WithFileServiceFactory(factory FileServiceFactory) Option {
	return func(s *service) {
		s.files = factory
	}
}

// WithAssetService sets a long-lived asset service
func WithAssetService(assets AssetService) Option {
	return func(s *service) {
		s.assets = func(context.Context) (AssetService, error) { return assets, nil }
	}
}

// WithAssetServiceFactory sets a factory invoked once per pipeline run
func WithAssetServiceFactory(factory AssetServiceFactory) Option {
	return func(s *service) {
		s.assets = factory
	}
}

// WithFieldService sets the schema field service used by Bootstrap
func WithFieldService(fields FieldService) Option {
	return func(s *service) {
		s.fields = func(context.Context) (FieldService, error) { return fields, nil }
	}
}

// WithFieldServiceFactory sets a factory invoked on every Bootstrap
func WithFieldServiceFactory(factory FieldServiceFactory) Option {
	return func(s *service) {
		s.fields = factory
	}
}

// WithDecoder replaces the default image decoder
func WithDecoder(decoder Decoder) Option {
	return func(s *service) {
		s.decoder = decoder
	}
}

// WithHooks adds pipeline hooks. It may be given more than once.
func WithHooks(hooks *Hooks) Option {
	return func(s *service) {
		s.hooks.Merge(hooks)
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithRenditionFormat overrides the output format requested from the asset service
func WithRenditionFormat(format string) Option {
	return func(s *service) {
		if format != "" {
			s.rendition.Format = format
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		decoder:   NewImageDecoder(),
		hooks:     &Hooks{},
		logger:    slog.Default(),
		rendition: DefaultRenditionOptions(),
	}

	for _, option := range options {
		option(s)
	}

	if s.files == nil {
		return nil, fmt.Errorf("file service is required")
	}
	if s.assets == nil {
		return nil, fmt.Errorf("asset service is required")
	}
	if s.decoder == nil {
		return nil, fmt.Errorf("decoder is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("service", "blurhash"))

	return s, nil
}

func (s *service) Bootstrap(ctx context.Context) error {
	if s.fields == nil {
		return fmt.Errorf("field service is not configured")
	}

	fields, err := s.fields(ctx)
	if err != nil {
		return fmt.Errorf("acquire field service: %w", err)
	}

	_, err = fields.ReadField(ctx, FilesCollection, FieldName)
	if err == nil {
		s.logger.Debug("blurhash field present", "collection", FilesCollection)
		return nil
	}
	if !errors.Is(err, ErrFieldNotFound) {
		return fmt.Errorf("read field %s.%s: %w", FilesCollection, FieldName, err)
	}

	if err := fields.CreateField(ctx, FilesCollection, BlurhashField()); err != nil {
		return fmt.Errorf("create field %s.%s: %w", FilesCollection, FieldName, err)
	}

	s.logger.Info("blurhash field created", "collection", FilesCollection, "field", FieldName)
	return nil
}

func (s *service) Process(ctx context.Context, fileID string, force bool) (*Result, error) {
	result := &Result{FileID: fileID}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
	}()

	files, err := s.files(ctx)
	if err != nil {
		return s.fail(ctx, result, "acquire_files", fmt.Errorf("acquire file service: %w", err))
	}

	file, err := files.ReadFile(ctx, fileID, EligibilityFields())
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			s.logger.Warn("file not found, skipping blurhash", "file_id", fileID)
			return s.skip(ctx, result, err), nil
		}
		return s.fail(ctx, result, "read", fmt.Errorf("read file %s: %w", fileID, err))
	}

	if err := CheckEligibility(file, force); err != nil {
		return s.skip(ctx, result, err), nil
	}

	if err := s.hooks.executeBeforeProcess(ctx, file, force); err != nil {
		return s.skip(ctx, result, err), nil
	}

	assets, err := s.assets(ctx)
	if err != nil {
		return s.fail(ctx, result, "acquire_assets", fmt.Errorf("acquire asset service: %w", err))
	}

	data, err := fetchRendition(ctx, assets, fileID, s.rendition)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return s.skip(ctx, result, err), nil
		}
		return s.fail(ctx, result, "fetch", err)
	}

	pixels, err := s.decode(data)
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			err = decodeErr.Err
		}
		return s.fail(ctx, result, "decode", &DecodeError{FileID: fileID, Err: err})
	}

	hash, err := Encode(pixels)
	if err != nil {
		return s.fail(ctx, result, "encode", &EncodeError{FileID: fileID, Err: err})
	}

	if err := s.hooks.executeAfterHashComputed(ctx, fileID, hash); err != nil {
		return s.fail(ctx, result, "after_hash_computed", err)
	}

	if err := files.UpdateFile(ctx, fileID, FileUpdate{Blurhash: hash}); err != nil {
		return s.fail(ctx, result, "persist", &PersistError{FileID: fileID, Err: err})
	}

	if err := s.hooks.executeAfterPersist(ctx, fileID, hash); err != nil {
		s.logger.Warn("after persist hook failed", "file_id", fileID, "err", err)
	}

	result.Outcome = OutcomeHashed
	result.Hash = hash
	s.logger.Info("blurhash stored", "file_id", fileID, "force", force, "duration", time.Since(start))
	return result, nil
}

// decode guards against injected decoders that panic
func (s *service) decode(data []byte) (pixels *PixelBuffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			pixels, err = nil, fmt.Errorf("decoder panicked: %v", r)
		}
	}()
	return s.decoder.Decode(data)
}

func (s *service) HandleUpload(ctx context.Context, fileID string) {
	s.handle(ctx, fileID, true)
}

func (s *service) HandleUpdate(ctx context.Context, fileIDs []string) {
	for _, fileID := range fileIDs {
		s.handle(ctx, fileID, false)
	}
}

// handle is the outermost boundary of an event: nothing escapes it.
func (s *service) handle(ctx context.Context, fileID string, force bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("blurhash pipeline panicked", "file_id", fileID, "panic", r)
		}
	}()

	if _, err := s.Process(ctx, fileID, force); err != nil {
		s.logger.Error("blurhash enrichment failed", "file_id", fileID, "force", force, "err", err)
	}
}

func (s *service) skip(ctx context.Context, result *Result, reason error) *Result {
	result.Outcome = OutcomeSkipped
	result.Reason = reason
	s.hooks.executeOnSkip(ctx, result.FileID, reason)
	s.logger.Debug("blurhash skipped", "file_id", result.FileID, "reason", reason)
	return result
}

func (s *service) fail(ctx context.Context, result *Result, operation string, err error) (*Result, error) {
	result.Outcome = OutcomeFailed
	result.Reason = err
	s.hooks.executeOnError(ctx, operation, err)
	return result, err
}
