package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/harborline/payments-core/pkg/config"
)

type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Ping(_ context.Context) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(context.Background())
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	f.values[key] = toString(value)
	cmd := goredis.NewStatusCmd(context.Background())
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeStore) Get(_ context.Context, key string) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(context.Background())
	value, ok := f.values[key]
	if !ok {
		cmd.SetErr(goredis.Nil)
		return cmd
	}
	cmd.SetVal(value)
	return cmd
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) *goredis.BoolCmd {
	cmd := goredis.NewBoolCmd(context.Background())
	if _, exists := f.values[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	f.values[key] = toString(value)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeStore) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(context.Background())
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func newTestClient() (*Client, *fakeStore) {
	store := newFakeStore()
	return &Client{store: store}, store
}

func TestOptionsFromConfigRequiresEndpoint(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 5})
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 5, opts.PoolSize)
}

func TestLockKeyNamespacing(t *testing.T) {
	client, _ := newTestClient()
	require.Equal(t, "paycore:lock:payment_collection:pc1", client.LockKey("payment_collection", "pc1"))
}

func TestAcquireAndReleaseLock(t *testing.T) {
	client, _ := newTestClient()
	ctx := context.Background()
	key := client.LockKey("payment_collection", "pc1")

	ok, err := client.AcquireLock(ctx, key, "holder-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.AcquireLock(ctx, key, "holder-b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, client.ReleaseLock(ctx, key, "holder-a"))

	ok, err = client.AcquireLock(ctx, key, "holder-b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReleaseLockIgnoresForeignHolder(t *testing.T) {
	client, store := newTestClient()
	ctx := context.Background()
	key := client.LockKey("payment_collection", "pc1")

	ok, err := client.AcquireLock(ctx, key, "holder-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.ReleaseLock(ctx, key, "holder-b"))
	require.Contains(t, store.values, key)
}

func TestReleaseLockMissingKeyIsNoop(t *testing.T) {
	client, _ := newTestClient()
	require.NoError(t, client.ReleaseLock(context.Background(), "paycore:lock:x", "holder"))
}
