// Package storage defines the persistence interfaces of the service:
//   - AuthStateStore: pending and processed authorization states (TTL-bound)
//   - TokenStore: the credential bound to each browser session
//   - QuotaStore: the shared daily quota counter
//
// It also provides the serialized record types and key prefixes shared by
// the implementations, including encryption of tokens at rest.
//
// Implementations are provided in subpackages:
//   - storage/memory: in-process storage for development and tests
//   - storage/valkey: Valkey/Redis-compatible storage for multi-instance deployments
//   - storage/mock: function-field mocks with call counters for unit tests
package storage
