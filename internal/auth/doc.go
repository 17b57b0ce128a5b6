// Package auth authenticates users against their stored credentials.
//
// Unknown usernames and wrong passwords produce the same negative result so the
// caller cannot be used to enumerate accounts. Store failures are always
// surfaced as *BackendError.
package auth
