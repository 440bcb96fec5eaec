package database

import (
	"context"
	"testing"
	"time"

	"craftconnect/internal/common/config"
	"craftconnect/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestConnectRedis_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), config.RedisConfig{Address: mr.Addr()}, time.Second, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.GetClient().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnectRedis_GivesUp(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	start := time.Now()
	_, err := ConnectRedis(context.Background(), config.RedisConfig{Address: addr}, 500*time.Millisecond, logger.NewNoOpLogger())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
