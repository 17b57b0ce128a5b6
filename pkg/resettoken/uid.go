package resettoken

import (
	"encoding/base64"
	"strconv"
)

// EncodeUID returns the URL-safe identifier of a user id used next to the token in reset links.
func EncodeUID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

// DecodeUID reverses EncodeUID. It returns false for anything that is not a positive id
// or not its canonical encoding.
func DecodeUID(uid string) (int64, bool) {
	if uid == "" || len(uid) > 32 {
		return 0, false
	}

	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, false
	}

	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	if EncodeUID(id) != uid {
		// Signs and leading zeros would give several links for one user.
		return 0, false
	}
	return id, true
}
