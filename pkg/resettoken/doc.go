// Package resettoken mints and verifies self-contained password reset tokens.
//
// A token has the form:
//
//	<base36 unix timestamp>-<first 20 hex chars of HMAC-SHA256>
//
// The HMAC is computed with a server secret over the concatenation, without
// separators, of the subject's decimal id, the canonical encoding of its
// current password hash and the decimal timestamp. No server-side state is
// kept: a token stops verifying once it is older than the timeout or once the
// subject's password hash changes, which makes it single-use.
//
// Changing the signed material or the signature length invalidates every
// outstanding token.
package resettoken
