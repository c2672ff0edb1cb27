// Package vexauth is an embeddable authentication engine: JWT access
// tokens bound to durable refresh-token families, a Redis acceleration
// tier in front of the store, and password plus OpenID Connect login
// flows that share one issuance path.
//
// The durable token store is the source of truth for every revocation
// decision. The cache only makes reads cheaper: any cache failure is
// treated as a miss and the flow falls through to the store, so the
// engine behaves identically, apart from latency, with the cache
// disabled.
//
// Engines are assembled with the [Builder] and are safe for concurrent
// use after [Builder.Build] returns.
//
//	engine, err := vexauth.New().
//		WithConfig(cfg).
//		WithTokenStore(tokens).
//		WithCredentialStore(creds).
//		WithUserDirectory(users).
//		Build(ctx)
package vexauth
