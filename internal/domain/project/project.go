// Package project defines the parent project record attached to a conversation context.
package project

import "time"

// Project groups challenges and ASK sessions for one client engagement.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	ClientID    *string    `json:"clientId"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}
