// Package profile implements verification-gated management of a user's own
// identity record.
//
// Sensitive identifiers (password, email, phone, federated identities) can
// only be mutated by a request that presents a valid verification record: a
// short-lived, single-use proof that the subject controls the credential or
// identifier involved. Every mutation walks the same guarded sequence:
//
//	authenticate subject -> validate input -> resolve verification record ->
//	check identifier collision -> commit -> consume record -> emit event
//
// A failure at any step aborts before the commit, so no partial state is
// ever observable. Unique identifiers are pre-checked against the user store
// for a fast user-facing error, with the store's own uniqueness constraints
// as the authoritative guard against concurrent claims.
package profile
