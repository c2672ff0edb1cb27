// Package oidc drives the OpenID Connect authorization-code flow
// against a fixed set of upstream identity providers.
//
// A [Service] is built once at startup from []ProviderConfig; each
// enabled entry goes through discovery and becomes a [Provider] holding
// a go-oidc ID-token verifier and an oauth2 configuration. The flow is
// InitiateAuth (record single-use state, hand out the authorization
// URL) followed by HandleCallback (consume state, exchange the code,
// verify the ID token, map the identity, issue the internal token
// pair). Upstream refresh and RFC 7009 revocation round out the
// lifecycle.
//
// The package never mints tokens itself and never touches storage: the
// [TokenIssuer] and [IdentityResolver] collaborators keep issuance and
// account mapping on the engine's single code path.
package oidc
