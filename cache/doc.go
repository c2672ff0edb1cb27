// Package cache provides the optional acceleration tier for token
// verification: a Redis-backed session cache plus a no-op variant used when
// caching is disabled.
//
// The cache is strictly derivative. It may be flushed at any time without
// correctness loss, and the engine treats any backend failure as a miss.
// Revocation markers are written before cached entries are deleted, so a
// revoked token can never be resurrected by a racing cache fill.
package cache
