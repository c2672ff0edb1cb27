// Package password implements argon2id password hashing and verification.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Cost parameters travel inside the hash, so hashes written with older
// settings keep verifying after a config change; [Argon2.NeedsUpgrade]
// tells callers when to re-hash on the next successful login.
//
// [Argon2.DummyHash] provides a stable decoy hash for login flows that
// want user lookups for known and unknown identifiers to take the same
// amount of work.
package password
