package redis

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/identity-platform/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*CodeStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCodeStore(client, "test-pepper"), mr
}

func TestVerify_HappyPath_ReturnsPayloadAndDeletes(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice@x.com", "register", "123456", []byte(`{"k":"v"}`), time.Minute))

	payload, err := store.Verify(ctx, "alice@x.com", "register", "123456")
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, string(payload))

	// Single use: second attempt with the same correct code fails.
	_, err = store.Verify(ctx, "alice@x.com", "register", "123456")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)
}

func TestVerify_WrongCode_LeavesEntryIntact(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice@x.com", "register", "123456", nil, time.Minute))

	_, err := store.Verify(ctx, "alice@x.com", "register", "000000")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)

	// Retry with the correct code still succeeds.
	_, err = store.Verify(ctx, "alice@x.com", "register", "123456")
	assert.NoError(t, err)
}

func TestVerify_MissingEntry(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Verify(context.Background(), "ghost@x.com", "register", "123456")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)
}

func TestVerify_PurposeIsolation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice@x.com", "register", "123456", nil, time.Minute))

	// A registration code must not validate a login attempt.
	_, err := store.Verify(ctx, "alice@x.com", "login", "123456")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)
}

func TestVerify_ExpiredEntry_PayloadUnrecoverable(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "bob@x.com", "register", "123456", []byte(`{"draft":true}`), 300*time.Second))

	mr.FastForward(301 * time.Second)

	payload, err := store.Verify(ctx, "bob@x.com", "register", "123456")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)
	assert.Nil(t, payload)
}

func TestPut_OverwritesExistingEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice@x.com", "register", "111111", nil, time.Minute))
	require.NoError(t, store.Put(ctx, "alice@x.com", "register", "222222", nil, time.Minute))

	_, err := store.Verify(ctx, "alice@x.com", "register", "111111")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)
	_, err = store.Verify(ctx, "alice@x.com", "register", "222222")
	assert.NoError(t, err)
}

func TestRotate_KeepsPayload(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice@x.com", "register", "111111", []byte(`{"draft":1}`), time.Minute))
	require.NoError(t, store.Rotate(ctx, "alice@x.com", "register", "222222", time.Minute))

	_, err := store.Verify(ctx, "alice@x.com", "register", "111111")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)

	payload, err := store.Verify(ctx, "alice@x.com", "register", "222222")
	require.NoError(t, err)
	assert.JSONEq(t, `{"draft":1}`, string(payload))
}

func TestRotate_MissingEntry(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.Rotate(context.Background(), "ghost@x.com", "register", "222222", time.Minute)
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)
}

func TestClear_RemovesEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice@x.com", "register", "123456", nil, time.Minute))
	require.NoError(t, store.Clear(ctx, "alice@x.com", "register"))

	_, err := store.Verify(ctx, "alice@x.com", "register", "123456")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)

	// Clearing an absent entry is not an error.
	assert.NoError(t, store.Clear(ctx, "alice@x.com", "register"))
}

func TestVerify_ConcurrentCorrectSubmissions_AtMostOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "carol@x.com", "register", "123456", []byte(`{}`), time.Minute))

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Verify(ctx, "carol@x.com", "register", "123456")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, invalid int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case err == domain.ErrCodeInvalid:
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, invalid)
}

func TestPut_NeverStoresPlaintextCode(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice@x.com", "register", "987654", nil, time.Minute))

	for _, key := range mr.Keys() {
		raw, err := mr.Get(key)
		require.NoError(t, err)
		assert.False(t, strings.Contains(raw, "987654"), "plaintext code found under key %s", key)
	}
}
