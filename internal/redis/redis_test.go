package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := NewClient("localhost:6379", false)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.False(t, client.IsEnabled())
	assert.Nil(t, client.GetClient())
}

func TestNewClient_UnreachableHost(t *testing.T) {
	client, err := NewClient("redis://invalid-host-xyz:6379/0", true)
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_Methods_Disabled(t *testing.T) {
	client, err := NewClient("", false)
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, client.Set(ctx, "key", "value", 0))
	assert.NoError(t, client.Del(ctx, "key"))
	assert.NoError(t, client.Expire(ctx, "key", time.Hour))
	assert.NoError(t, client.Publish(ctx, "channel", "message"))

	_, err = client.Get(ctx, "key")
	assert.Error(t, err)

	_, err = client.Exists(ctx, "key")
	assert.Error(t, err)

	_, err = client.Keys(ctx, "file:*")
	assert.NoError(t, err)

	_, err = client.XAdd(ctx, "stream", map[string]interface{}{"kind": "node-added"})
	assert.Error(t, err)

	_, err = client.XRange(ctx, "stream", "-", 10)
	assert.Error(t, err)

	pubsub := client.Subscribe(ctx, "channel")
	assert.Nil(t, pubsub)
}

func TestClient_Close(t *testing.T) {
	client, _ := NewClient("", false)
	assert.NoError(t, client.Close())

	client = &Client{client: nil, enabled: false}
	assert.NoError(t, client.Close())
}
