package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	config := Config{
		Addr:       mr.Addr(),
		DefaultTTL: 1 * time.Minute,
	}

	manager, err := NewManager(config, zap.NewNop())
	require.NoError(t, err)

	return mr, manager
}

func TestNewManager(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	assert.NotNil(t, manager)
	assert.NotNil(t, manager.redis)
	assert.NotNil(t, manager.logger)
}

func TestNewManager_NilLogger(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	manager, err := NewManager(Config{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	defer manager.Close()

	assert.NotNil(t, manager.logger)
}

func TestNewManager_ConnectFailed(t *testing.T) {
	manager, err := NewManager(Config{Addr: "localhost:1"}, zap.NewNop())
	assert.Nil(t, manager)
	assert.Error(t, err)
}

func TestManager_SetAndGet(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	err := manager.Set(ctx, "test-key", "test-value", 1*time.Minute)
	require.NoError(t, err)

	value, err := manager.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "test-value", value)
}

func TestManager_GetNonExistent(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	value, err := manager.Get(context.Background(), "non-existent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.True(t, IsCacheMiss(err))
	assert.Equal(t, "", value)
}

func TestManager_MGet(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "alpha", "1", time.Minute))
	require.NoError(t, manager.Set(ctx, "gamma", "3", time.Minute))

	found, err := manager.MGet(ctx, "alpha", "beta", "gamma")
	require.NoError(t, err)

	// Missing keys are absent from the result, not an error.
	assert.Equal(t, map[string]string{"alpha": "1", "gamma": "3"}, found)
}

func TestManager_MGetNoKeys(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	found, err := manager.MGet(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestManager_SetDefaultTTL(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	// Zero TTL falls back to the configured one-minute default.
	err := manager.Set(ctx, "test-default-ttl", "value", 0)
	require.NoError(t, err)

	value, err := manager.Get(ctx, "test-default-ttl")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	mr.FastForward(2 * time.Minute)

	_, err = manager.Get(ctx, "test-default-ttl")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_Delete(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	err := manager.Set(ctx, "test-key", "test-value", 1*time.Minute)
	require.NoError(t, err)

	err = manager.Delete(ctx, "test-key")
	require.NoError(t, err)

	_, err = manager.Get(ctx, "test-key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_DeleteNoKeys(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	assert.NoError(t, manager.Delete(context.Background()))
}

func TestManager_SetJSON(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	type testData struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	data := testData{Name: "test", Value: 123}

	err := manager.SetJSON(ctx, "test-json", data, 1*time.Minute)
	require.NoError(t, err)

	var result testData
	err = manager.GetJSON(ctx, "test-json", &result)
	require.NoError(t, err)

	assert.Equal(t, data, result)
}

func TestManager_GetJSONNonExistent(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	var result map[string]any
	err := manager.GetJSON(context.Background(), "non-existent", &result)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_SetJSONInvalidData(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	invalidData := make(chan int)
	err := manager.SetJSON(context.Background(), "test-invalid", invalidData, 1*time.Minute)
	assert.Error(t, err)
}

func TestManager_GetJSONInvalidJSON(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	err := manager.Set(ctx, "test-invalid-json", "not a json", 1*time.Minute)
	require.NoError(t, err)

	var result map[string]any
	err = manager.GetJSON(ctx, "test-invalid-json", &result)
	assert.Error(t, err)
	assert.False(t, IsCacheMiss(err))
}

func TestManager_TTL(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	err := manager.Set(ctx, "test-ttl", "value", 100*time.Millisecond)
	require.NoError(t, err)

	value, err := manager.Get(ctx, "test-ttl")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	mr.FastForward(200 * time.Millisecond)

	_, err = manager.Get(ctx, "test-ttl")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_Ping(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	assert.NoError(t, manager.Ping(context.Background()))
}

func TestManager_Close(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()

	require.NoError(t, manager.Close())

	// Close is idempotent.
	assert.NoError(t, manager.Close())

	ctx := context.Background()

	_, err := manager.Get(ctx, "any")
	assert.ErrorIs(t, err, ErrClosed)

	err = manager.Set(ctx, "any", "value", time.Minute)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = manager.MGet(ctx, "any")
	assert.ErrorIs(t, err, ErrClosed)

	assert.ErrorIs(t, manager.Delete(ctx, "any"), ErrClosed)
	assert.ErrorIs(t, manager.Ping(ctx), ErrClosed)
}

func TestManager_ConcurrentOperations(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := fmt.Sprintf("concurrent-%d", id)
			err := manager.Set(ctx, key, "value", 1*time.Minute)
			assert.NoError(t, err)
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	for i := 0; i < 10; i++ {
		go func(id int) {
			key := fmt.Sprintf("concurrent-%d", id)
			value, err := manager.Get(ctx, key)
			assert.NoError(t, err)
			assert.Equal(t, "value", value)
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
