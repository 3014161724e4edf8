package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"glucoplate"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMemory returns a store whose clock advances one second per call.
func newTestMemory() *Memory {
	m := NewMemory()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return m
}

func TestMealLogs_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestMemory().MealLogs()
	alice, bob := uuid.New(), uuid.New()

	first, err := repo.Create(ctx, glucoplate.MealLogEntry{UserID: alice, FoodID: 1})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, float64(glucoplate.DefaultAmountGrams), first.AmountGrams)
	assert.False(t, first.Timestamp.IsZero())

	second, err := repo.Create(ctx, glucoplate.MealLogEntry{UserID: alice, FoodID: 2, AmountGrams: 250, Notes: "lunch"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, glucoplate.MealLogEntry{UserID: bob, FoodID: 3})
	require.NoError(t, err)

	list, err := repo.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)

	got, err := repo.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "lunch", got.Notes)

	empty, err := repo.ListByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMealLogs_CreateValidation(t *testing.T) {
	repo := NewMemory().MealLogs()

	_, err := repo.Create(context.Background(), glucoplate.MealLogEntry{FoodID: 1})
	assert.ErrorIs(t, err, glucoplate.ErrValidation)

	_, err = repo.Create(context.Background(), glucoplate.MealLogEntry{UserID: uuid.New(), FoodID: 1, AmountGrams: -5})
	assert.ErrorIs(t, err, glucoplate.ErrValidation)
}

func TestMealLogs_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory().MealLogs()
	owner, other := uuid.New(), uuid.New()

	entry, err := repo.Create(ctx, glucoplate.MealLogEntry{UserID: owner, FoodID: 4})
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      uuid.UUID
		caller  uuid.UUID
		wantErr error
	}{
		{name: "someone else's entry", id: entry.ID, caller: other, wantErr: glucoplate.ErrForbidden},
		{name: "missing entry", id: uuid.New(), caller: owner, wantErr: glucoplate.ErrNotFound},
		{name: "owner deletes", id: entry.ID, caller: owner},
		{name: "already deleted", id: entry.ID, caller: owner, wantErr: glucoplate.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Delete(ctx, tt.id, tt.caller)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMealLogs_ForbiddenDeleteLeavesEntry(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory().MealLogs()
	owner := uuid.New()

	entry, err := repo.Create(ctx, glucoplate.MealLogEntry{UserID: owner, FoodID: 4})
	require.NoError(t, err)

	require.ErrorIs(t, repo.Delete(ctx, entry.ID, uuid.New()), glucoplate.ErrForbidden)

	got, err := repo.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestMealLogs_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory().MealLogs()
	user := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(food int) {
			defer wg.Done()
			_, err := repo.Create(ctx, glucoplate.MealLogEntry{UserID: user, FoodID: food})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := repo.ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Len(t, list, 50)
}

func TestChats_Chronological(t *testing.T) {
	ctx := context.Background()
	repo := newTestMemory().Chats()
	user := uuid.New()

	_, err := repo.Create(ctx, glucoplate.ChatExchange{UserID: user, MessageText: "hello", IsFromUser: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, glucoplate.ChatExchange{UserID: uuid.New(), MessageText: "other", IsFromUser: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, glucoplate.ChatExchange{UserID: user, MessageText: "hi there"})
	require.NoError(t, err)

	list, err := repo.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "hello", list[0].MessageText)
	assert.True(t, list[0].IsFromUser)
	assert.Equal(t, "hi there", list[1].MessageText)
	assert.True(t, list[0].Timestamp.Before(list[1].Timestamp))

	_, err = repo.Create(ctx, glucoplate.ChatExchange{MessageText: "anon"})
	assert.ErrorIs(t, err, glucoplate.ErrValidation)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory().Users()

	created, err := repo.Create(ctx, glucoplate.User{Username: " Sara ", PasswordHash: "hash", Name: "Sara"})
	require.NoError(t, err)
	assert.Equal(t, "Sara", created.Username)
	assert.Equal(t, glucoplate.Arabic, created.Language)

	_, err = repo.Create(ctx, glucoplate.User{Username: "sara"})
	assert.ErrorIs(t, err, glucoplate.ErrAlreadyExists)

	_, err = repo.Create(ctx, glucoplate.User{Username: "  "})
	assert.ErrorIs(t, err, glucoplate.ErrValidation)

	byName, err := repo.GetByUsername(ctx, "SARA")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	age := 42
	updated := byName
	updated.Age = &age
	updated.DiabetesType = "type2"
	updated.Username = "hijack"
	updated.PasswordHash = ""
	got, err := repo.Update(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, "Sara", got.Username)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, 42, *got.Age)

	fetched, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "type2", fetched.DiabetesType)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, glucoplate.ErrNotFound)
	_, err = repo.Update(ctx, glucoplate.User{ID: uuid.New()})
	assert.ErrorIs(t, err, glucoplate.ErrNotFound)
	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, glucoplate.ErrNotFound)
}
