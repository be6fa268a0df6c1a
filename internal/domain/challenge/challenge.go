// Package challenge defines the challenge record attached to a conversation context.
package challenge

// Challenge is a problem statement within a project that ASK sessions explore.
type Challenge struct {
	ID          string  `json:"id"`
	ProjectID   *string `json:"projectId"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    *string `json:"priority"`
	Category    *string `json:"category"`
}
