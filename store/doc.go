// Package store defines the durable refresh-token store: the authoritative
// record of every issued refresh token and the source of truth for
// revocation. An in-memory implementation serves tests and single-node
// setups, a GORM-backed one serves relational databases.
package store
