// Package store persists users, meal logs and chat history.
package store

import (
	"context"

	"glucoplate"

	"github.com/google/uuid"
)

type MealLogRepository interface {
	// Create assigns the ID and timestamp. A zero amount becomes
	// glucoplate.DefaultAmountGrams.
	Create(ctx context.Context, entry glucoplate.MealLogEntry) (glucoplate.MealLogEntry, error)
	Get(ctx context.Context, id uuid.UUID) (glucoplate.MealLogEntry, error)
	// ListByUser returns the user's entries newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]glucoplate.MealLogEntry, error)
	// Delete removes an entry owned by callerID. It returns ErrNotFound for a
	// missing entry and ErrForbidden for someone else's, leaving it intact.
	Delete(ctx context.Context, id, callerID uuid.UUID) error
}

type ChatRepository interface {
	Create(ctx context.Context, msg glucoplate.ChatExchange) (glucoplate.ChatExchange, error)
	// ListByUser returns the user's messages oldest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]glucoplate.ChatExchange, error)
}

type UserRepository interface {
	Create(ctx context.Context, user glucoplate.User) (glucoplate.User, error)
	Get(ctx context.Context, id uuid.UUID) (glucoplate.User, error)
	GetByUsername(ctx context.Context, username string) (glucoplate.User, error)
	Update(ctx context.Context, user glucoplate.User) (glucoplate.User, error)
}
