package model

import "github.com/mdouchement/passgate/pkg/password"

// MaxUsernameLength is the maximum length in bytes of a stored username.
const MaxUsernameLength = 254

// A User represents a database record.
type User struct {
	Base `msgpack:",inline" storm:"inline"`

	Username string `msgpack:"username" storm:"unique"`
	Name     string `msgpack:"name"`
	Email    string `msgpack:"email"`
	Password string `msgpack:"password"`
}

// NewUser returns a new user, not yet persisted.
func NewUser(username, name, email string) *User {
	return &User{
		Username: username,
		Name:     name,
		Email:    email,
	}
}

// PasswordHash returns the password hash snapshot of the user.
func (u *User) PasswordHash() password.Hash {
	return password.Hash(u.Password)
}

// SetPasswordHash replaces the password hash snapshot of the user.
func (u *User) SetPasswordHash(h password.Hash) {
	u.Password = h.String()
}

// String implements fmt.Stringer.
func (u *User) String() string {
	return u.Username
}
