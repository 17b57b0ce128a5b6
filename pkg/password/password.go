package password

import (
	"encoding/base64"
	"strconv"
	"strings"

	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/pkg/errors"
	xargon2 "golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	algorithmArgon2id = "argon2id"

	minMemory      uint32 = 8 * 1024
	minTime        uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// Upper bounds applied when reading a stored hash.
	maxMemory    uint32 = 1 << 20
	maxTime      uint32 = 64
	maxKeyLength        = 1024
)

var encoding = base64.RawStdEncoding

type (
	// A Hash is the opaque stored encoding of a hashed password.
	// It carries the algorithm, its parameters, the salt and the digest.
	Hash string

	// A Status is the outcome of a password verification.
	Status int

	// A Verification is the result of Hasher.Verify.
	// Upgrade is only set when Status is Obsolete.
	Verification struct {
		Status  Status
		Upgrade Hash
	}

	// Config defines the argon2id parameters used for new hashes.
	Config struct {
		Memory      uint32 // KiB
		Time        uint32
		Parallelism uint8
		SaltLength  uint32
		KeyLength   uint32
	}

	// A Hasher hashes and verifies passwords.
	// It is safe for concurrent use.
	Hasher struct {
		config Config
	}

	params struct {
		memory      uint32
		time        uint32
		parallelism uint8
		salt        []byte
		digest      []byte
	}
)

const (
	// Invalid means the password does not match or the hash is unreadable.
	Invalid Status = iota
	// Valid means the password matches a hash computed with current parameters.
	Valid
	// Obsolete means the password matches but the hash must be replaced by Verification.Upgrade.
	Obsolete
)

// DefaultConfig is the parameter set used for new hashes.
var DefaultConfig = Config{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// String returns the canonical stored encoding.
func (h Hash) String() string {
	return string(h)
}

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Obsolete:
		return "obsolete"
	default:
		return "invalid"
	}
}

// OK returns true when the password matched, whether the hash is obsolete or not.
func (v Verification) OK() bool {
	return v.Status == Valid || v.Status == Obsolete
}

// NewHasher returns a new Hasher for the given parameters.
func NewHasher(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemory:
		return nil, errors.Errorf("password memory must be >= %d KiB", minMemory)
	case cfg.Time < minTime:
		return nil, errors.Errorf("password time must be >= %d", minTime)
	case cfg.Parallelism < minParallelism:
		return nil, errors.Errorf("password parallelism must be >= %d", minParallelism)
	case cfg.SaltLength < minSaltLength:
		return nil, errors.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, errors.Errorf("password key length must be >= %d", minKeyLength)
	}

	return &Hasher{
		config: cfg,
	}, nil
}

// Config returns the parameters used for new hashes.
func (h *Hasher) Config() Config {
	return h.config
}

// Hash hashes the given password with a fresh random salt.
func (h *Hasher) Hash(password string) (Hash, error) {
	encoded, err := argon2.GenerateFromPasswordString(password, h.params())
	if err != nil {
		return "", errors.Wrap(err, "could not hash password")
	}
	return Hash(encoded), nil
}

func (h *Hasher) params() argon2.Params {
	return argon2.Params{
		Memory:      h.config.Memory,
		Iterations:  h.config.Time,
		Parallelism: h.config.Parallelism,
		SaltLength:  h.config.SaltLength,
		KeyLength:   h.config.KeyLength,
	}
}

// Verify checks the password against the given hash.
// A malformed hash is reported as Invalid.
func (h *Hasher) Verify(hash Hash, password string) Verification {
	encoded := hash.String()

	if isBcrypt(encoded) {
		if bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) != nil {
			return Verification{Status: Invalid}
		}
		// bcrypt is the legacy scheme, any match gets rehashed.
		return h.obsolete(password)
	}

	p, err := parse(encoded)
	if err != nil {
		return Verification{Status: Invalid}
	}

	if argon2.CompareHashAndPasswordString(encoded, password) != nil {
		return Verification{Status: Invalid}
	}

	if h.weaker(p) {
		return h.obsolete(password)
	}
	return Verification{Status: Valid}
}

func (h *Hasher) obsolete(password string) Verification {
	upgrade, err := h.Hash(password)
	if err != nil {
		// The password matched, the upgrade will be attempted on next login.
		return Verification{Status: Valid}
	}
	return Verification{Status: Obsolete, Upgrade: upgrade}
}

func (h *Hasher) weaker(p params) bool {
	return p.memory < h.config.Memory ||
		p.time < h.config.Time ||
		p.parallelism < h.config.Parallelism ||
		uint32(len(p.salt)) < h.config.SaltLength ||
		uint32(len(p.digest)) != h.config.KeyLength
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

//
// argon2id PHC encoding
//

func parse(encoded string) (p params, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, errors.New("invalid hash format")
	}
	if parts[1] != algorithmArgon2id {
		return p, errors.New("unsupported algorithm")
	}
	if parts[2] != "v="+strconv.Itoa(xargon2.Version) {
		return p, errors.New("unsupported argon2 version")
	}

	var seen int
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return p, errors.New("invalid parameter")
		}

		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minMemory || uint32(n) > maxMemory {
				return p, errors.New("invalid memory parameter")
			}
			p.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minTime || uint32(n) > maxTime {
				return p, errors.New("invalid time parameter")
			}
			p.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || uint8(n) < minParallelism {
				return p, errors.New("invalid parallelism parameter")
			}
			p.parallelism = uint8(n)
		default:
			return p, errors.New("unsupported parameter")
		}
		seen++
	}
	if seen != 3 || p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return p, errors.New("missing parameters")
	}

	if p.salt, err = encoding.DecodeString(parts[4]); err != nil || len(p.salt) == 0 {
		return p, errors.New("invalid salt")
	}
	if p.digest, err = encoding.DecodeString(parts[5]); err != nil || uint32(len(p.digest)) < minKeyLength || len(p.digest) > maxKeyLength {
		return p, errors.New("invalid digest")
	}

	return p, nil
}
