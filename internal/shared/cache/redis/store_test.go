package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"reminder/internal/shared/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// testStore 连接测试 Redis，不可用时跳过
func testStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	s, err := NewStoreFromURL(url, time.Minute)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUserCache(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	username := "cache-test-" + bson.NewObjectID().Hex()
	t.Cleanup(func() { s.Client().Del(context.Background(), "reminder:user:"+username) })

	got, err := s.GetUser(ctx, username)
	require.NoError(t, err)
	assert.Nil(t, got, "miss")

	u := &model.User{ID: bson.NewObjectID(), Username: username, Email: "c@example.com", HashedPassword: "secret-hash"}
	require.NoError(t, s.SetUser(ctx, u))

	got, err = s.GetUser(ctx, username)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.HashedPassword, "password hash is never cached")

	ttl, err := s.Client().TTL(ctx, "reminder:user:"+username).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	// 过期后未命中
	require.NoError(t, s.Client().Expire(ctx, "reminder:user:"+username, time.Millisecond).Err())
	time.Sleep(20 * time.Millisecond)
	got, err = s.GetUser(ctx, username)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewStoreFromClient_DefaultTTL(t *testing.T) {
	s := NewStoreFromClient(nil, 0)
	assert.Equal(t, time.Minute, s.ttl)
}
