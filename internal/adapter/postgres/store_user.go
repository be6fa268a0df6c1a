package postgres

import (
	"context"

	"github.com/Strob0t/askdesk/internal/domain/user"
)

// ListUsersByIDs loads every known user among ids in a single query.
func (s *Store) ListUsersByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []user.User{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, email, full_name, first_name, last_name, description
		 FROM users WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		return nil, wrapErr(err, "list users")
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.FirstName, &u.LastName, &u.Description); err != nil {
			return nil, wrapErr(err, "scan user")
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "list users")
	}
	return orEmpty(out), nil
}
