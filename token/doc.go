// Package token implements the signed-token codec shared by the local and
// OpenID Connect flows: issuance, cryptographic verification, and one-way
// hashing of access and refresh tokens.
//
// The codec is pure and stateless. Nothing in this package talks to the
// session cache or the durable store; revocation is the caller's concern.
package token
