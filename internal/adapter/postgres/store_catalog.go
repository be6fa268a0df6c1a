package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/challenge"
	"github.com/Strob0t/askdesk/internal/domain/project"
)

func (s *Store) GetProject(ctx context.Context, id string) (*project.Project, error) {
	if !validID(id) {
		return nil, fmt.Errorf("get project %s: %w", id, domain.ErrNotFound)
	}
	var p project.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, status, client_id, start_date, end_date
		 FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.ClientID, &p.StartDate, &p.EndDate)
	if err != nil {
		return nil, wrapErr(err, "get project %s", id)
	}
	return &p, nil
}

func (s *Store) GetChallenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	if !validID(id) {
		return nil, fmt.Errorf("get challenge %s: %w", id, domain.ErrNotFound)
	}
	var c challenge.Challenge
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, name, description, status, priority, category
		 FROM challenges WHERE id = $1`, id).
		Scan(&c.ID, &c.ProjectID, &c.Name, &c.Description, &c.Status, &c.Priority, &c.Category)
	if err != nil {
		return nil, wrapErr(err, "get challenge %s", id)
	}
	return &c, nil
}
