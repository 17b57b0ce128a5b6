// Package password hashes and verifies user passwords.
//
// New hashes use argon2id and are encoded in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<digest>
//
// Verification understands the current parameter set, weaker argon2id
// parameter sets and legacy bcrypt hashes. A matching password against a
// weaker or legacy hash is reported as Obsolete together with a replacement
// hash that the caller is expected to persist.
package password
