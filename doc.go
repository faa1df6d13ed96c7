// Package authstore is the credential and token persistence core of an
// OAuth 2.0 authorization server. It manages the lifecycle of client
// credentials, authorization codes, access/refresh token pairs, and
// scope definitions over a pluggable document store.
//
// The package enforces the validity-state protocol the token endpoint
// relies on: authorization codes are single-use (redeemed atomically),
// token lookups are filtered to valid records and scoped to the issuing
// client, duplicate matches on unique keys surface as consistency
// errors, and client secrets are compared in constant time.
//
// Storage backends live under storage/ (memory, mongo, redis,
// postgres) behind the storage.Adapter interface; the Store here is a
// stateless façade over whichever adapter it is constructed with.
package authstore
