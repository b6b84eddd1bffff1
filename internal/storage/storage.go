package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/readlater-bot/internal/models"
)

// ErrUserNotFound is returned when mutating a registration that does not exist
var ErrUserNotFound = errors.New("user not registered")

// Storage is the durable part of the record store: registrations and pins.
type Storage interface {
	UserStore
	PinStore
	Close() error
}

// UserStore keeps user registrations. GetUser returns nil, nil when the user is unknown.
type UserStore interface {
	GetUser(ctx context.Context, userID int64) (*models.UserRegistration, error)
	// SaveUser upserts token and database id, keeping any delivery time already set
	SaveUser(ctx context.Context, user *models.UserRegistration) error
	SetDeliveryTime(ctx context.Context, userID int64, deliveryTime string) error
	DeleteUser(ctx context.Context, userID int64) error
	// ListScheduledUsers returns registrations with a non-empty delivery time
	ListScheduledUsers(ctx context.Context) ([]*models.UserRegistration, error)
}

// PinStore keeps pinned content. GetPin returns nil, nil when nothing is pinned.
type PinStore interface {
	GetPin(ctx context.Context, userID int64) (*models.PinnedContent, error)
	SavePin(ctx context.Context, pin *models.PinnedContent) error
	DeletePin(ctx context.Context, userID int64) error
}

// StateStore keeps short lived conversation state. Expired entries read as nil, nil.
type StateStore interface {
	GetState(ctx context.Context, userID int64) (*models.ConversationState, error)
	PutState(ctx context.Context, state *models.ConversationState, ttl time.Duration) error
	DeleteState(ctx context.Context, userID int64) error
}
