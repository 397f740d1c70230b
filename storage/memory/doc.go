// Package memory provides an in-process implementation of the storage
// interfaces: AuthStateStore, TokenStore and QuotaStore.
//
// Entries carry their own expiry; reads ignore expired entries and a
// background loop removes them. The quota check-and-increment runs under a
// single mutex, so it is atomic within one process only. Deployments with
// more than one replica must use storage/valkey.
//
// Example usage:
//
//	store := memory.New()
//	defer store.Stop()
//	store.SetEncryptor(enc)
//	store.SetInstrumentation(inst)
package memory
