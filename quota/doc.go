// Package quota enforces the shared daily budget of YouTube Data API units.
//
// Every downstream call is charged before it is made with Limiter.Consume.
// The charge is an atomic increment-within-limit on a per-day counter held
// by a storage.QuotaStore, so concurrent callers can never overrun the
// budget between them. A rejected charge leaves the counter unchanged;
// an admitted charge is never refunded, even if the call then fails.
//
// Days roll over at midnight in America/Los_Angeles, which is when Google
// resets project quotas. The same location computes both the counter key
// and its expiry.
package quota
