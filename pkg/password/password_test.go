package password_test

import (
	"strings"
	"testing"

	"github.com/mdouchement/passgate/pkg/password"
	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var cheap = password.Config{
	Memory:      8 * 1024,
	Time:        2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func hasher(t *testing.T, cfg password.Config) *password.Hasher {
	t.Helper()

	h, err := password.NewHasher(cfg)
	require.NoError(t, err)
	return h
}

func TestNewHasher(t *testing.T) {
	_, err := password.NewHasher(password.DefaultConfig)
	assert.NoError(t, err)

	cfg := cheap
	cfg.Memory = 1024
	_, err = password.NewHasher(cfg)
	assert.EqualError(t, err, "password memory must be >= 8192 KiB")

	cfg = cheap
	cfg.Time = 0
	_, err = password.NewHasher(cfg)
	assert.Error(t, err)

	cfg = cheap
	cfg.SaltLength = 8
	_, err = password.NewHasher(cfg)
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	h := hasher(t, cheap)

	h1, err := h.Hash("correct-horse")
	assert.NoError(t, err)
	assert.Regexp(t, `^\$argon2id\$v=19\$m=8192,t=2,p=1\$[A-Za-z0-9+/]+\$[A-Za-z0-9+/]+$`, h1.String())
	assert.NotContains(t, h1.String(), "correct-horse")

	h2, err := h.Hash("correct-horse")
	assert.NoError(t, err)
	assert.NotEqual(t, h1, h2, "salt must be random")
}

func TestVerify(t *testing.T) {
	h := hasher(t, cheap)

	hash, err := h.Hash("correct-horse")
	require.NoError(t, err)

	v := h.Verify(hash, "correct-horse")
	assert.Equal(t, password.Valid, v.Status)
	assert.Empty(t, v.Upgrade)
	assert.True(t, v.OK())

	v = h.Verify(hash, "battery-staple")
	assert.Equal(t, password.Invalid, v.Status)
	assert.False(t, v.OK())
}

func TestVerify_Interoperability(t *testing.T) {
	h := hasher(t, cheap)

	hash, err := h.Hash("correct-horse")
	require.NoError(t, err)
	assert.NoError(t, argon2.CompareHashAndPasswordString(hash.String(), "correct-horse"))
	assert.ErrorIs(t, argon2.CompareHashAndPasswordString(hash.String(), "wrong"), argon2.ErrMismatchedHashAndPassword)

	external, err := argon2.GenerateFromPasswordString("correct-horse", argon2.Params{
		Memory:      8 * 1024,
		Iterations:  2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	assert.Equal(t, password.Valid, h.Verify(password.Hash(external), "correct-horse").Status)
	assert.Equal(t, password.Invalid, h.Verify(password.Hash(external), "wrong").Status)
}

func TestVerify_WeakerParameters(t *testing.T) {
	legacy := cheap
	legacy.Time = 1
	old := hasher(t, legacy)
	current := hasher(t, cheap)

	hash, err := old.Hash("correct-horse")
	require.NoError(t, err)

	v := current.Verify(hash, "correct-horse")
	assert.Equal(t, password.Obsolete, v.Status)
	assert.True(t, v.OK())
	assert.Contains(t, v.Upgrade.String(), "m=8192,t=2,p=1")
	assert.Equal(t, password.Valid, current.Verify(v.Upgrade, "correct-horse").Status)

	assert.Equal(t, password.Invalid, current.Verify(hash, "wrong").Status)
}

func TestVerify_StrongerParametersAreValid(t *testing.T) {
	stronger := cheap
	stronger.Time = 3
	hash, err := hasher(t, stronger).Hash("correct-horse")
	require.NoError(t, err)

	assert.Equal(t, password.Valid, hasher(t, cheap).Verify(hash, "correct-horse").Status)
}

func TestVerify_Bcrypt(t *testing.T) {
	h := hasher(t, cheap)

	raw, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	hash := password.Hash(raw)

	v := h.Verify(hash, "correct-horse")
	assert.Equal(t, password.Obsolete, v.Status)
	assert.True(t, strings.HasPrefix(v.Upgrade.String(), "$argon2id$"))

	assert.Equal(t, password.Invalid, h.Verify(hash, "wrong").Status)
}

func TestVerify_Malformed(t *testing.T) {
	h := hasher(t, cheap)

	hash, err := h.Hash("correct-horse")
	require.NoError(t, err)
	parts := strings.Split(hash.String(), "$")

	for _, malformed := range []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2i$v=19$m=8192,t=2,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=16$m=8192,t=2,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=8192,t=2$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=8192,t=2,p=1,x=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=1,t=2,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=4294967295,t=2,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=8192,t=2,p=1$!!!$" + parts[5],
		"$argon2id$v=19$m=8192,t=2,p=1$" + parts[4] + "$",
		"$2a$04$garbage",
	} {
		assert.Equal(t, password.Invalid, h.Verify(password.Hash(malformed), "correct-horse").Status, malformed)
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "valid", password.Valid.String())
	assert.Equal(t, "obsolete", password.Obsolete.String())
	assert.Equal(t, "invalid", password.Invalid.String())
}
