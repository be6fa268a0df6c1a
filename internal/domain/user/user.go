// Package user defines the read-only account record consumed for display names.
package user

// User is an account owned by the identity subsystem.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"fullName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Description string `json:"description"`
}

// Index maps users by ID. A nil Index behaves as empty.
type Index map[string]User

// Lookup returns the user with the given ID, or nil when id is nil or unknown.
func (idx Index) Lookup(id *string) *User {
	if id == nil {
		return nil
	}
	u, ok := idx[*id]
	if !ok {
		return nil
	}
	return &u
}

// Missing returns the IDs from ids that are not present in idx, deduplicated
// and in first-seen order.
func (idx Index) Missing(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := idx[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
