package common

import "time"

// Lead is the payload of a Lead.New event. The worker only ever sees it as a queue message body.
type Lead struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewLeadRequest is what the producer endpoint accepts. The lead ID and creation time are assigned on publish.
type NewLeadRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
	UserID      string `json:"user_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=256"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,max=32"`
}

type TestEventRequest struct {
	ShouldFail *bool `json:"shouldFail,omitempty"`
}
