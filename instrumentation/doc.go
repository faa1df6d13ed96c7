// Package instrumentation provides OpenTelemetry metrics and tracing
// for the credential store. It exposes pre-configured instruments for
// credential lifecycle events and storage operations, backed by no-op
// providers until real exporters are wired in.
package instrumentation
