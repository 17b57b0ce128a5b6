package serializer

import "github.com/mdouchement/passgate/internal/model"

// User serializes the render of a user.
// The password hash is never rendered.
func User(m *model.User) map[string]any {
	r := map[string]any{
		"id":       m.ID,
		"username": m.Username,
		"fullname": m.Name,
		"email":    m.Email,
	}

	if m.CreatedAt != nil {
		r["created_at"] = m.CreatedAt.UTC()
	}
	if m.UpdatedAt != nil {
		r["updated_at"] = m.UpdatedAt.UTC()
	}

	return r
}
