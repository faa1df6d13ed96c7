package authstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apifest/authstore/instrumentation"
	"github.com/apifest/authstore/security"
	"github.com/apifest/authstore/storage"
)

// Store is the persistence façade for client credentials, authorization
// codes, access tokens, and scopes. It is stateless apart from the
// injected adapter and safe for concurrent use.
type Store struct {
	adapter storage.Adapter
	logger  *slog.Logger

	inst   *instrumentation.Instrumentation
	tracer trace.Tracer

	limiter       *security.RateLimiter
	encryptor     *security.Encryptor
	hashedSecrets bool
}

// Option configures a Store.
type Option func(*Store)

// WithInstrumentation attaches OpenTelemetry metrics and tracing to
// every storage operation.
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(s *Store) {
		s.inst = inst
		if inst != nil {
			s.tracer = inst.Tracer("store")
		}
	}
}

// WithHashedSecrets stores client secrets as bcrypt hashes instead of
// opaque values. Validation then uses bcrypt comparison; FindClient
// returns the hash, never the plaintext.
func WithHashedSecrets() Option {
	return func(s *Store) { s.hashedSecrets = true }
}

// WithEncryptor encrypts non-indexed sensitive record fields (client
// secrets, token details) at rest. Indexed fields stay in the clear
// because ciphertexts cannot serve as lookup filters.
func WithEncryptor(enc *security.Encryptor) Option {
	return func(s *Store) { s.encryptor = enc }
}

// WithValidationLimiter bounds client-secret validation attempts per
// clientId as brute-force protection.
func WithValidationLimiter(rl *security.RateLimiter) Option {
	return func(s *Store) { s.limiter = rl }
}

// New creates a Store over the given storage adapter.
func New(adapter storage.Adapter, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		adapter: adapter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping verifies the storage backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.adapter.Ping(ctx)
}

// Close releases the storage backend connection and stops the
// validation limiter if one is attached.
func (s *Store) Close(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.adapter.Close(ctx)
}

// startStorageSpan starts a new span for a storage operation
func (s *Store) startStorageSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("store.%s", operation),
		trace.WithAttributes(
			attribute.String(instrumentation.AttrStorageOperation, operation),
		))

	return ctx, span
}

// recordStorageOperation records metrics for a storage operation and sets span status
func (s *Store) recordStorageOperation(ctx context.Context, span trace.Span, operation string, err error, startTime time.Time) {
	if s.inst == nil {
		return
	}

	durationMs := float64(time.Since(startTime).Milliseconds())
	result := "success"
	if err != nil {
		result = "error"
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	} else if span != nil {
		span.SetStatus(codes.Ok, "")
	}

	s.inst.Metrics().RecordStorageOperation(ctx, operation, result, durationMs)
}

// metrics returns the metrics holder, or nil when uninstrumented.
func (s *Store) metrics() *instrumentation.Metrics {
	if s.inst == nil {
		return nil
	}
	return s.inst.Metrics()
}
