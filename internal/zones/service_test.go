package zones

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/driverops/pkg/logger"
)

func TestCreateRejectsBlankNameWithoutRequest(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	svc := NewService(newTestClient(srv.URL), 0, 0, logger.NewNop())

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := svc.Create(context.Background(), ZoneInput{ZoneName: name})
		require.ErrorIs(t, err, ErrNameRequired)
		assert.Equal(t, "Zone name is required", err.Error())
	}

	blank := " "
	_, err := svc.Update(context.Background(), "z1", ZonePatch{ZoneName: &blank})
	require.ErrorIs(t, err, ErrNameRequired)

	assert.Equal(t, int64(0), hits.Load())
}

func TestUpdateWithoutNameSkipsValidation(t *testing.T) {
	svc := NewService(NewMemoryStore(SeedZones()), 0, 0, logger.NewNop())
	active := true
	env, err := svc.Update(context.Background(), "6541abc123def456791", ZonePatch{IsActive: &active})
	require.NoError(t, err)
	assert.True(t, env.Data.IsActive)
	assert.Equal(t, "Sentosa", env.Data.ZoneName)
}

type failingStore struct {
	MemoryStore
	err error
}

func (f *failingStore) List(ctx context.Context) (Envelope[[]Zone], error) {
	return Envelope[[]Zone]{}, f.err
}

func TestServiceWrapsPlainErrors(t *testing.T) {
	boom := errors.New("disk full")
	svc := NewService(&failingStore{err: boom}, 0, 0, logger.NewNop())

	_, err := svc.List(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Failed to fetch zones", apiErr.Message)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.ErrorIs(t, err, boom)
}

type countingStore struct {
	*MemoryStore
	gets atomic.Int64
}

func (c *countingStore) Get(ctx context.Context, id string) (Envelope[Zone], error) {
	c.gets.Add(1)
	return c.MemoryStore.Get(ctx, id)
}

func TestGetIsCachedUntilUpdate(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore(SeedZones())}
	svc := NewService(store, 16, time.Minute, logger.NewNop())
	ctx := context.Background()
	id := "6541abc123def456790"

	for i := 0; i < 3; i++ {
		env, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, MsgRetrieved, env.Message)
		assert.Equal(t, "Orchard Road", env.Data.ZoneName)
	}
	assert.Equal(t, int64(1), store.gets.Load())

	name := "Orchard Road (ION)"
	_, err := svc.Update(ctx, id, ZonePatch{ZoneName: &name})
	require.NoError(t, err)

	env, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Orchard Road (ION)", env.Data.ZoneName)
	assert.Equal(t, int64(2), store.gets.Load())

	_, err = svc.Delete(ctx, id)
	require.NoError(t, err)
	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

type blockingStore struct {
	countingStore
	release chan struct{}
}

func (b *blockingStore) Get(ctx context.Context, id string) (Envelope[Zone], error) {
	b.gets.Add(1)
	<-b.release
	return b.MemoryStore.Get(ctx, id)
}

func TestConcurrentGetsShareOneLookup(t *testing.T) {
	store := &blockingStore{
		countingStore: countingStore{MemoryStore: NewMemoryStore(SeedZones())},
		release:       make(chan struct{}),
	}
	svc := NewService(store, 0, 0, logger.NewNop())

	var wg sync.WaitGroup
	names := make([]string, 5)
	for i := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env, err := svc.Get(context.Background(), "6541abc123def456790")
			if err == nil {
				names[i] = env.Data.ZoneName
			}
		}()
	}

	require.Eventually(t, func() bool { return store.gets.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.Equal(t, int64(1), store.gets.Load())
	for _, n := range names {
		assert.Equal(t, "Orchard Road", n)
	}
}

// readThenHoldStore returns from Get only after release is closed, having
// already read the row.
type readThenHoldStore struct {
	*MemoryStore
	readOnce sync.Once
	read     chan struct{}
	release  chan struct{}
}

func (r *readThenHoldStore) Get(ctx context.Context, id string) (Envelope[Zone], error) {
	env, err := r.MemoryStore.Get(ctx, id)
	r.readOnce.Do(func() { close(r.read) })
	<-r.release
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Envelope[Zone]{}, ctxErr
	}
	return env, err
}

func newReadThenHoldStore() *readThenHoldStore {
	return &readThenHoldStore{
		MemoryStore: NewMemoryStore(SeedZones()),
		read:        make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func TestLookupOverlappingUpdateDoesNotCacheOldZone(t *testing.T) {
	store := newReadThenHoldStore()
	svc := NewService(store, 16, time.Minute, logger.NewNop())
	ctx := context.Background()
	id := "6541abc123def456790"

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Get(ctx, id)
	}()
	<-store.read

	name := "Renamed"
	_, err := svc.Update(ctx, id, ZonePatch{ZoneName: &name})
	require.NoError(t, err)

	close(store.release)
	<-done

	env, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", env.Data.ZoneName)
}

func TestLookupOverlappingDeleteDoesNotResurrectZone(t *testing.T) {
	store := newReadThenHoldStore()
	svc := NewService(store, 16, time.Minute, logger.NewNop())
	ctx := context.Background()
	id := "6541abc123def456790"

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Get(ctx, id)
	}()
	<-store.read

	_, err := svc.Delete(ctx, id)
	require.NoError(t, err)

	close(store.release)
	<-done

	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	store := newReadThenHoldStore()
	svc := NewService(store, 0, 0, logger.NewNop())
	id := "6541abc123def456790"

	firstCtx, cancel := context.WithCancel(context.Background())
	go svc.Get(firstCtx, id)
	<-store.read

	result := make(chan error, 1)
	go func() {
		_, err := svc.Get(context.Background(), id)
		result <- err
	}()
	// let the second caller join the in-flight lookup
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(store.release)

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second lookup did not return")
	}
}
