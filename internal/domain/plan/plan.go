// Package plan defines the step-by-step conversation plan attached to a thread.
// Plans are produced elsewhere; this package only reads them.
package plan

import "time"

// StepStatus is the progress state of a plan step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusSkipped   StepStatus = "skipped"
)

// Step is one discussion step. StepIdentifier is the stable key messages
// reference through their plan step id.
type Step struct {
	ID             string     `json:"id"`
	StepIdentifier string     `json:"stepIdentifier"`
	Title          string     `json:"title"`
	Objective      string     `json:"objective"`
	Status         StepStatus `json:"status"`
	Position       int        `json:"position"`
	Summary        *string    `json:"summary"`
}

// Plan is the ordered list of steps for one conversation thread.
type Plan struct {
	ID                   string    `json:"id"`
	ConversationThreadID string    `json:"conversationThreadId"`
	Title                string    `json:"title"`
	CurrentStepID        *string   `json:"currentStepId"`
	Steps                []Step    `json:"steps"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// ActiveStep returns the step named by CurrentStepID, else the first step
// that is neither completed nor skipped, else nil.
func (p *Plan) ActiveStep() *Step {
	if p == nil {
		return nil
	}
	if p.CurrentStepID != nil {
		for i := range p.Steps {
			if p.Steps[i].StepIdentifier == *p.CurrentStepID || p.Steps[i].ID == *p.CurrentStepID {
				return &p.Steps[i]
			}
		}
	}
	for i := range p.Steps {
		switch p.Steps[i].Status {
		case StepStatusCompleted, StepStatusSkipped:
			continue
		}
		return &p.Steps[i]
	}
	return nil
}

// Progress returns completed (or skipped) and total step counts.
func (p *Plan) Progress() (done, total int) {
	if p == nil {
		return 0, 0
	}
	for i := range p.Steps {
		if p.Steps[i].Status == StepStatusCompleted || p.Steps[i].Status == StepStatusSkipped {
			done++
		}
	}
	return done, len(p.Steps)
}
