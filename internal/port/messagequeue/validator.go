package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch subject {
	case SubjectThreadCreated:
		var p ThreadCreatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.ThreadID == "" || p.AskSessionID == "" {
			return fmt.Errorf("schema validation failed for %s: thread_id and ask_session_id are required", subject)
		}
	case SubjectMessageCreated:
		var p MessageCreatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.MessageID == "" {
			return fmt.Errorf("schema validation failed for %s: message_id is required", subject)
		}
	case SubjectCatalogInvalidate:
		var p CatalogInvalidatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if err := p.validate(); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
	}
	return nil
}

func (p CatalogInvalidatePayload) validate() error {
	if p.Kind != "project" && p.Kind != "challenge" {
		return fmt.Errorf("unknown kind %q", p.Kind)
	}
	if p.ID == "" {
		return errors.New("id is required")
	}
	return nil
}
