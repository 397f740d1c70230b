// Package valkey provides a Valkey storage backend for the YouTube OAuth service.
//
// Valkey is wire-compatible with Redis. The Store type implements
// [storage.AuthStateStore], [storage.TokenStore] and [storage.QuotaStore],
// which lets several service replicas share pending authorization states,
// session tokens and the daily quota counter.
//
// # Key Schema
//
// All keys use a configurable prefix (default "ytoauth:"):
//
//	{prefix}oauth:state:{stateValue}      -> JSON(StateRecord), TTL 10m, kept on processing
//	{prefix}session:token:{sessionID}     -> JSON(TokenRecord), TTL = session lifetime
//	{prefix}youtube:quota:{YYYY-MM-DD}    -> integer usage, TTL until the next reset
//
// # Atomic Operations
//
// Two operations run as Lua scripts:
//
//   - MarkProcessed rewrites the state record with SET ... KEEPTTL so the
//     original expiry survives, and reports not-found once the key is gone.
//   - IncrementWithinLimit increments the quota counter, rolls the increment
//     back when the limit would be exceeded, and sets the expiry on the first
//     increment of the day.
//
// # Configuration
//
//	store, err := valkey.New(valkey.Config{
//	    Address:   "localhost:6379",
//	    KeyPrefix: "ytoauth:",
//	})
//
// With TLS:
//
//	store, err := valkey.New(valkey.Config{
//	    Address:  "valkey.example.com:6379",
//	    Password: os.Getenv("VALKEY_PASSWORD"),
//	    TLS:      &tls.Config{MinVersion: tls.VersionTLS12},
//	})
//
// # Token Encryption at Rest
//
// Access tokens, refresh tokens and PKCE verifiers are encrypted with
// AES-256-GCM before they are written when an encryptor is set:
//
//	enc, _ := security.NewEncryptor(key)
//	store.SetEncryptor(enc)
package valkey
