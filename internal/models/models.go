package models

import "time"

// PendingAction is the note operation the next URL message from a user will trigger
type PendingAction string

const (
	ActionMark   PendingAction = "mark"
	ActionDelete PendingAction = "delete"
	ActionPin    PendingAction = "pin"
)

// Valid reports whether a is one of the known actions
func (a PendingAction) Valid() bool {
	switch a {
	case ActionMark, ActionDelete, ActionPin:
		return true
	}
	return false
}

// UserRegistration links a chat user to their Notion database
type UserRegistration struct {
	UserID         int64     `json:"user_id"`
	WorkspaceToken string    `json:"workspace_token"`
	DatabaseID     string    `json:"database_id"`
	DeliveryTime   string    `json:"delivery_time,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Credentials returns the workspace credentials of the registration
func (u *UserRegistration) Credentials() Credentials {
	return Credentials{Token: u.WorkspaceToken, DatabaseID: u.DatabaseID}
}

// Credentials identify one Notion database and the integration token allowed to read it
type Credentials struct {
	Token      string
	DatabaseID string
}

// ConversationState holds the action a user selected while we wait for a URL
type ConversationState struct {
	UserID        int64         `json:"user_id"`
	PendingAction PendingAction `json:"pending_action"`
}

// PinnedContent overrides random selection at delivery time
type PinnedContent struct {
	UserID int64  `json:"user_id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}
