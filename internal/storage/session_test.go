package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zus_chatbot/pkg"
)

func turn(role pkg.Role, text string) pkg.ConversationTurn {
	return pkg.ConversationTurn{Role: role, Text: text, Timestamp: time.Now()}
}

func TestMemoryTurnStoreRecentWindow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTurnStore(0)

	for i := 0; i < 15; i++ {
		require.NoError(t, store.Append(ctx, "s1", turn(pkg.RoleUser, fmt.Sprintf("m%d", i))))
	}

	turns, err := store.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 10)
	assert.Equal(t, "m5", turns[0].Text)
	assert.Equal(t, "m14", turns[9].Text)

	turns, err = store.Recent(ctx, "s1", 100)
	require.NoError(t, err)
	assert.Len(t, turns, 15)
}

func TestMemoryTurnStoreUnknownSession(t *testing.T) {
	store := NewMemoryTurnStore(0)

	turns, err := store.Recent(context.Background(), "missing", 10)
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
	assert.Equal(t, 0, store.SessionCount())
}

func TestMemoryTurnStoreReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTurnStore(0)

	require.NoError(t, store.Append(ctx, "s1", turn(pkg.RoleUser, "hello")))
	require.NoError(t, store.Append(ctx, "s2", turn(pkg.RoleUser, "other")))
	require.NoError(t, store.Reset(ctx, "s1"))
	require.NoError(t, store.Reset(ctx, "never-seen"))

	turns, err := store.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = store.Recent(ctx, "s2", 10)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestMemoryTurnStoreSessionCap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTurnStore(3)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "s1", turn(pkg.RoleBot, fmt.Sprintf("m%d", i))))
	}

	turns, err := store.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "m2", turns[0].Text)
}

func TestMemoryTurnStoreRejectsEmptySession(t *testing.T) {
	err := NewMemoryTurnStore(0).Append(context.Background(), "", turn(pkg.RoleUser, "x"))
	assert.ErrorIs(t, err, pkg.ErrInvalidRequest)
}

func TestMemoryTurnStoreConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTurnStore(0)

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_ = store.Append(ctx, "shared", turn(pkg.RoleUser, fmt.Sprintf("%d-%d", w, i)))
				_ = store.Append(ctx, fmt.Sprintf("own-%d", w), turn(pkg.RoleUser, "x"))
			}
		}(w)
	}
	wg.Wait()

	turns, err := store.Recent(ctx, "shared", writers*perWriter*2)
	require.NoError(t, err)
	assert.Len(t, turns, writers*perWriter)
	assert.Equal(t, writers+1, store.SessionCount())
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisTurnStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)

	store := NewRedisTurnStore(client, ttl)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisTurnStore(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)
	sessionID := "test-" + uuid.NewString()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(ctx, sessionID, turn(pkg.RoleUser, fmt.Sprintf("m%d", i))))
	}
	assert.True(t, mr.Exists(conversationPrefix+sessionID))

	turns, err := store.Recent(ctx, sessionID, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "m2", turns[0].Text)
	assert.Equal(t, "m3", turns[1].Text)
	assert.Equal(t, pkg.RoleUser, turns[0].Role)

	ttl, err := store.GetTTL(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	require.NoError(t, store.Reset(ctx, sessionID))
	assert.False(t, mr.Exists(conversationPrefix+sessionID))
	turns, err = store.Recent(ctx, sessionID, 2)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisTurnStoreSlidingTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	require.NoError(t, store.Append(ctx, "s1", turn(pkg.RoleUser, "hello")))
	mr.FastForward(40 * time.Second)
	assert.Equal(t, 20*time.Second, mr.TTL(conversationPrefix+"s1"))

	_, err := store.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(conversationPrefix+"s1"))

	mr.FastForward(2 * time.Minute)
	turns, err := store.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisTurnStoreErrors(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, 0)

	assert.ErrorIs(t, store.Append(ctx, "", turn(pkg.RoleUser, "x")), pkg.ErrInvalidRequest)

	turns, err := store.Recent(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)

	require.NoError(t, store.Ping(ctx))
	mr.Close()
	assert.Error(t, store.Ping(ctx))
	assert.ErrorIs(t, store.Append(ctx, "s1", turn(pkg.RoleUser, "x")), pkg.ErrServiceUnavailable)
}

func TestNewRedisClientValidation(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "")
	assert.Error(t, err)

	_, err = NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
