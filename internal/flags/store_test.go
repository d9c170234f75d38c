package flags

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/constants"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

func TestNewStore_NilClient(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{constants.FlagHaltSwaps, constants.FlagHaltLiquidity, "flag123", "a", "with-dash_and.dot"} {
		assert.NoError(t, ValidateKey(key), key)
	}
	for _, key := range []string{"", " ", "flag with spaces", "flag:with:colons", "flag\twith\ttabs", "flag\nnewline"} {
		assert.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
}

func TestStore_UpsertGetDelete(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, constants.FlagHaltSwaps)
	assert.ErrorIs(t, err, ErrNotFound)

	flag, err := store.Upsert(ctx, constants.FlagHaltSwaps, true, "incident 42")
	require.NoError(t, err)
	assert.True(t, flag.Value)

	got, err := store.Get(ctx, constants.FlagHaltSwaps)
	require.NoError(t, err)
	assert.Equal(t, "incident 42", got.Reason)
	assert.True(t, flag.UpdatedAt.Equal(got.UpdatedAt))

	time.Sleep(time.Millisecond)
	flag2, err := store.Upsert(ctx, constants.FlagHaltSwaps, false, "")
	require.NoError(t, err)
	assert.True(t, flag2.UpdatedAt.After(flag.UpdatedAt))

	require.NoError(t, store.Delete(ctx, constants.FlagHaltSwaps))
	_, err = store.Get(ctx, constants.FlagHaltSwaps)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting a missing flag is not an error
	assert.NoError(t, store.Delete(ctx, "missing.flag"))
}

func TestStore_Enabled(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)
	ctx := context.Background()

	on, err := store.Enabled(ctx, constants.FlagHaltLiquidity)
	require.NoError(t, err)
	assert.False(t, on)

	_, err = store.Upsert(ctx, constants.FlagHaltLiquidity, true, "")
	require.NoError(t, err)
	on, err = store.Enabled(ctx, constants.FlagHaltLiquidity)
	require.NoError(t, err)
	assert.True(t, on)

	_, err = store.Enabled(ctx, "bad key")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestStore_List(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)
	ctx := context.Background()

	flags, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, flags)

	want := map[string]bool{constants.FlagHaltSwaps: true, constants.FlagHaltLiquidity: false, "maintenance": true}
	for key, value := range want {
		_, err := store.Upsert(ctx, key, value, "")
		require.NoError(t, err)
	}

	flags, err = store.List(ctx)
	require.NoError(t, err)
	got := make(map[string]bool, len(flags))
	for _, f := range flags {
		got[f.Key] = f.Value
	}
	assert.Equal(t, want, got)
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)
	ctx := context.Background()

	const workers, ops = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				key := fmt.Sprintf("flag.%d.%d", id, j)
				value := (id+j)%2 == 0
				_, err := store.Upsert(ctx, key, value, "")
				assert.NoError(t, err)
				on, err := store.Enabled(ctx, key)
				assert.NoError(t, err)
				assert.Equal(t, value, on)
			}
		}(i)
	}
	wg.Wait()

	flags, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, flags, workers*ops)
}
