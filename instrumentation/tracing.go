package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys.
//
// SECURITY WARNING: Never log actual sensitive values (access tokens,
// refresh tokens, authorization codes, client secrets) in traces or
// metrics. Only log metadata such as client ids, scopes, expiry times,
// and validation results.
const (
	// OAuth credential attributes - metadata only
	AttrClientID  = "oauth.client_id"  // Client identifier (non-secret)
	AttrScope     = "oauth.scope"      // Requested scopes
	AttrGrantType = "oauth.grant_type" // OAuth grant type
	AttrTokenType = "oauth.token_type" //nolint:gosec // Token type (bearer) - NOT the actual token
	AttrExpiresIn = "oauth.expires_in" // Token expiry duration
	AttrValid     = "oauth.valid"      // Whether the credential is still valid

	// Storage attributes
	AttrStorageOperation  = "storage.operation"
	AttrStorageCollection = "storage.collection"
	AttrStorageResult     = "storage.result"

	// Security attributes
	AttrRateLimiterType = "security.rate_limiter.type"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddCredentialAttributes adds common credential attributes to a span (nil-safe)
func AddCredentialAttributes(span trace.Span, clientID, scope string) {
	if clientID != "" {
		SetSpanAttributes(span, attribute.String(AttrClientID, clientID))
	}
	if scope != "" {
		SetSpanAttributes(span, attribute.String(AttrScope, scope))
	}
}

// AddStorageAttributes adds storage operation attributes to a span (nil-safe)
func AddStorageAttributes(span trace.Span, operation, collection string) {
	SetSpanAttributes(span,
		attribute.String(AttrStorageOperation, operation),
		attribute.String(AttrStorageCollection, collection),
	)
}
