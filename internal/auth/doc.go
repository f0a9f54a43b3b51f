// Package auth provides token-based authentication for gate-opener.
//
// # Tokens
//
// Devices authenticate with HS256-signed JWTs minted at registration time.
// A token carries the device name and a per-registration random secret
// ("rand") that binds it to one stored device record.
//
// # Credential cache
//
// Verification never reads the device store. Instead, a Refresher
// periodically (and on demand after admin actions) loads all enabled
// devices and publishes an immutable snapshot via an atomic pointer swap.
// Readers always observe either the old or the new snapshot in full. A
// token verifies successfully iff its signature and expiry are valid and
// the snapshot contains an enabled record whose secret and name both match.
//
// # Principals
//
// A successful verification yields a Principal carrying the device name and
// its admin flag. The principal travels through the request via
// WithPrincipal/FromContext; handlers never consult global state.
package auth
