// Package credentials holds the fixed, ordered credential table that login
// checks against. Passwords are kept only as argon2id hashes once the table is
// built; a lookup is still an exact match on both email and password.
package credentials

import (
	"fmt"

	"github.com/nazir74680/Tumor-segmeantation/internal/config"
	"github.com/nazir74680/Tumor-segmeantation/internal/models"
	"github.com/nazir74680/Tumor-segmeantation/internal/security"
)

type Entry struct {
	ID       string
	Email    string
	Password string
	Name     string
	Role     models.UserRole
}

type record struct {
	user models.User
	hash []byte
}

type Table struct {
	records []record
}

// Defaults is the demo table shipped with the portal.
func Defaults() []Entry {
	return []Entry{
		{ID: "1", Email: "admin@example.com", Password: "admin123", Name: "Admin User", Role: models.UserRoleAdmin},
		{ID: "2", Email: "user@example.com", Password: "user123", Name: "Demo User", Role: models.UserRoleUser},
	}
}

func FromConfig(list []config.Credential) []Entry {
	entries := make([]Entry, 0, len(list))
	for _, c := range list {
		entries = append(entries, Entry{
			ID:       c.ID,
			Email:    c.Email,
			Password: c.Password,
			Name:     c.Name,
			Role:     models.UserRole(c.Role),
		})
	}
	return entries
}

func New(entries []Entry) (*Table, error) {
	t := &Table{records: make([]record, 0, len(entries))}
	for i, e := range entries {
		if e.ID == "" || e.Email == "" || e.Password == "" {
			return nil, fmt.Errorf("credential %d: id, email and password are required", i)
		}
		if !e.Role.Valid() {
			return nil, fmt.Errorf("credential %d: unknown role %q", i, e.Role)
		}

		hash, err := security.HashPassword(e.Password)
		if err != nil {
			return nil, fmt.Errorf("credential %d: %w", i, err)
		}

		t.records = append(t.records, record{
			user: models.User{
				ID:    e.ID,
				Email: e.Email,
				Name:  e.Name,
				Role:  e.Role,
			},
			hash: hash,
		})
	}
	return t, nil
}

// Lookup returns the first record in table order whose email and password
// both match exactly.
func (t *Table) Lookup(email, password string) (models.User, bool) {
	for _, r := range t.records {
		if r.user.Email != email {
			continue
		}
		ok, err := security.VerifyPassword(password, r.hash)
		if err == nil && ok {
			return r.user, true
		}
	}
	return models.User{}, false
}

func (t *Table) Len() int {
	return len(t.records)
}
