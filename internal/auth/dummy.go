package auth

import (
	"sync"

	"github.com/mdouchement/passgate/pkg/password"
)

var (
	dummyOnce sync.Once
	dummyHash password.Hash
)

// dummy returns a hash computed with the hasher parameters, used to keep
// unknown usernames as slow as wrong passwords.
func dummy(h *password.Hasher) password.Hash {
	dummyOnce.Do(func() {
		dummyHash, _ = h.Hash("passgate-dummy-password")
	})
	return dummyHash
}
