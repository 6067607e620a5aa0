// Package authbridge implements a redirect-based third-party
// authentication broker. A relying party sends a visitor to the
// authenticate endpoint with a target URL; authbridge establishes or
// upgrades a session, parks the intent as a pending redirect, walks the
// visitor through registration-code bootstrap, and finally delivers a
// signed JWT back to the relying party either as redirect query
// parameters or as a server-to-server JSON postback.
//
// The signing key is loaded once at boot, analyzed to derive the JWT
// algorithm from the raw key material, and published through a JWKS
// endpoint so relying parties can verify tokens offline.
package authbridge
