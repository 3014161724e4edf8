package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"glucoplate"

	"github.com/google/uuid"
)

// Memory keeps everything in process. One lock guards all three
// collections so each operation is atomic.
type Memory struct {
	mu sync.RWMutex

	users     map[uuid.UUID]glucoplate.User
	usernames map[string]uuid.UUID
	mealLogs  map[uuid.UUID]mealLogRow
	chats     []glucoplate.ChatExchange
	seq       int64
	now       func() time.Time
}

type mealLogRow struct {
	entry glucoplate.MealLogEntry
	seq   int64
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[uuid.UUID]glucoplate.User),
		usernames: make(map[string]uuid.UUID),
		mealLogs:  make(map[uuid.UUID]mealLogRow),
		now:       time.Now,
	}
}

// MealLogs, Chats and Users expose the repositories backed by m.
func (m *Memory) MealLogs() MealLogRepository { return (*memoryMealLogs)(m) }
func (m *Memory) Chats() ChatRepository       { return (*memoryChats)(m) }
func (m *Memory) Users() UserRepository       { return (*memoryUsers)(m) }

type memoryMealLogs Memory

func (r *memoryMealLogs) Create(ctx context.Context, entry glucoplate.MealLogEntry) (glucoplate.MealLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return glucoplate.MealLogEntry{}, err
	}
	if entry.UserID == uuid.Nil {
		return glucoplate.MealLogEntry{}, glucoplate.NewValidationError("userId", "User is required")
	}
	if entry.AmountGrams < 0 {
		return glucoplate.MealLogEntry{}, glucoplate.NewValidationError("amount", "Amount must not be negative")
	}
	if entry.AmountGrams == 0 {
		entry.AmountGrams = glucoplate.DefaultAmountGrams
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = uuid.New()
	entry.Timestamp = r.now()
	r.seq++
	r.mealLogs[entry.ID] = mealLogRow{entry: entry, seq: r.seq}
	return entry, nil
}

func (r *memoryMealLogs) Get(ctx context.Context, id uuid.UUID) (glucoplate.MealLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return glucoplate.MealLogEntry{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.mealLogs[id]
	if !ok {
		return glucoplate.MealLogEntry{}, fmt.Errorf("meal log %s: %w", id, glucoplate.ErrNotFound)
	}
	return row.entry, nil
}

func (r *memoryMealLogs) ListByUser(ctx context.Context, userID uuid.UUID) ([]glucoplate.MealLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	rows := make([]mealLogRow, 0)
	for _, row := range r.mealLogs {
		if row.entry.UserID == userID {
			rows = append(rows, row)
		}
	}
	r.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].entry.Timestamp.Equal(rows[j].entry.Timestamp) {
			return rows[i].entry.Timestamp.After(rows[j].entry.Timestamp)
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]glucoplate.MealLogEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entry)
	}
	return out, nil
}

func (r *memoryMealLogs) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.mealLogs[id]
	if !ok {
		return fmt.Errorf("meal log %s: %w", id, glucoplate.ErrNotFound)
	}
	if row.entry.UserID != callerID {
		return fmt.Errorf("meal log %s: %w", id, glucoplate.ErrForbidden)
	}
	delete(r.mealLogs, id)
	return nil
}

type memoryChats Memory

func (r *memoryChats) Create(ctx context.Context, msg glucoplate.ChatExchange) (glucoplate.ChatExchange, error) {
	if err := ctx.Err(); err != nil {
		return glucoplate.ChatExchange{}, err
	}
	if msg.UserID == uuid.Nil {
		return glucoplate.ChatExchange{}, glucoplate.NewValidationError("userId", "User is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = uuid.New()
	msg.Timestamp = r.now()
	r.chats = append(r.chats, msg)
	return msg, nil
}

func (r *memoryChats) ListByUser(ctx context.Context, userID uuid.UUID) ([]glucoplate.ChatExchange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]glucoplate.ChatExchange, 0)
	for _, msg := range r.chats {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type memoryUsers Memory

func usernameKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (r *memoryUsers) Create(ctx context.Context, user glucoplate.User) (glucoplate.User, error) {
	if err := ctx.Err(); err != nil {
		return glucoplate.User{}, err
	}
	key := usernameKey(user.Username)
	if key == "" {
		return glucoplate.User{}, glucoplate.NewValidationError("username", "Username is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.usernames[key]; taken {
		return glucoplate.User{}, fmt.Errorf("user %q: %w", user.Username, glucoplate.ErrAlreadyExists)
	}

	user.ID = uuid.New()
	user.Username = strings.TrimSpace(user.Username)
	user.CreatedAt = r.now()
	if user.Language == "" {
		user.Language = glucoplate.Arabic
	}
	r.users[user.ID] = user
	r.usernames[key] = user.ID
	return user, nil
}

func (r *memoryUsers) Get(ctx context.Context, id uuid.UUID) (glucoplate.User, error) {
	if err := ctx.Err(); err != nil {
		return glucoplate.User{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return glucoplate.User{}, fmt.Errorf("user %s: %w", id, glucoplate.ErrNotFound)
	}
	return user, nil
}

func (r *memoryUsers) GetByUsername(ctx context.Context, username string) (glucoplate.User, error) {
	if err := ctx.Err(); err != nil {
		return glucoplate.User{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usernames[usernameKey(username)]
	if !ok {
		return glucoplate.User{}, fmt.Errorf("user %q: %w", username, glucoplate.ErrNotFound)
	}
	return r.users[id], nil
}

// Update replaces the stored profile. ID, username, password hash and
// creation time are not changed through this path.
func (r *memoryUsers) Update(ctx context.Context, user glucoplate.User) (glucoplate.User, error) {
	if err := ctx.Err(); err != nil {
		return glucoplate.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return glucoplate.User{}, fmt.Errorf("user %s: %w", user.ID, glucoplate.ErrNotFound)
	}

	user.Username = existing.Username
	user.PasswordHash = existing.PasswordHash
	user.CreatedAt = existing.CreatedAt
	r.users[user.ID] = user
	return user, nil
}
