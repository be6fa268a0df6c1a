package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/plan"
)

// PlanForThread loads the conversation plan of a thread with its steps
// ordered by position.
func (s *Store) PlanForThread(ctx context.Context, threadID string) (*plan.Plan, error) {
	if !validID(threadID) {
		return nil, fmt.Errorf("plan for thread %s: %w", threadID, domain.ErrNotFound)
	}

	var p plan.Plan
	err := s.pool.QueryRow(ctx,
		`SELECT id, conversation_thread_id, title, current_step_id, created_at, updated_at
		 FROM ask_conversation_plans WHERE conversation_thread_id = $1`, threadID).
		Scan(&p.ID, &p.ConversationThreadID, &p.Title, &p.CurrentStepID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrapErr(err, "plan for thread %s", threadID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, step_identifier, title, objective, status, position, summary
		 FROM ask_conversation_plan_steps WHERE plan_id = $1 ORDER BY position ASC`, p.ID)
	if err != nil {
		return nil, wrapErr(err, "list plan steps %s", p.ID)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			st     plan.Step
			status string
		)
		if err := rows.Scan(&st.ID, &st.StepIdentifier, &st.Title, &st.Objective, &status, &st.Position, &st.Summary); err != nil {
			return nil, wrapErr(err, "scan plan step")
		}
		st.Status = plan.StepStatus(status)
		p.Steps = append(p.Steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "list plan steps %s", p.ID)
	}
	p.Steps = orEmpty(p.Steps)
	return &p, nil
}
