package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/audit/store/memory"
	"provenant/pkg/requestcontext"
)

func passportEvent(id string, action audit.Action) audit.Event {
	return audit.Event{
		EntityKind: audit.EntityPassport,
		EntityID:   id,
		Action:     action,
		ActorID:    "0xalice",
	}
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), passportEvent("1", audit.ActionPassportCreated))
	require.NoError(t, err)

	events, err := pub.List(context.Background(), audit.EntityPassport, "1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionPassportCreated, events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.NotEqual(t, [16]byte{}, [16]byte(events[0].ID))
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), passportEvent("7", audit.ActionLocatorUpdated)))
	}

	pub.Close()

	events, err := store.ListByEntity(context.Background(), audit.EntityPassport, "7")
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	blocking := &blockingStore{release: make(chan struct{})}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	pub := NewPublisher(blocking, WithAsyncBuffer(1), WithMetrics(metrics))

	// First event is picked up by the drain goroutine and blocks there, the
	// second fills the buffer, and from then on emission must fail fast.
	require.NoError(t, pub.Emit(context.Background(), passportEvent("1", audit.ActionLocatorUpdated)))
	require.Eventually(t, func() bool { return blocking.started() }, time.Second, 5*time.Millisecond)
	require.NoError(t, pub.Emit(context.Background(), passportEvent("1", audit.ActionLocatorUpdated)))

	err := pub.Emit(context.Background(), passportEvent("1", audit.ActionLocatorUpdated))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dropped))

	close(blocking.release)
	pub.Close()
}

func TestPublisher_SetsDefaultsFromContext(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)
	ctx = requestcontext.WithRequestID(ctx, "req-123")

	require.NoError(t, pub.Emit(ctx, passportEvent("3", audit.ActionCertHashAppended)))

	events, err := pub.List(ctx, audit.EntityPassport, "3")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, "req-123", events[0].RequestID)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC)
	event := passportEvent("4", audit.ActionPassportFinalized)
	event.Timestamp = customTime

	require.NoError(t, pub.Emit(context.Background(), event))

	events, err := pub.List(context.Background(), audit.EntityPassport, "4")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_StoreFailureIsReturnedInSyncMode(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	pub := NewPublisher(failingStore{}, WithMetrics(metrics))
	defer pub.Close()

	err := pub.Emit(context.Background(), passportEvent("5", audit.ActionPassportCreated))
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PersistFailures))
}

func TestPublisher_ConcurrentEmit(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1000))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), passportEvent("9", audit.ActionMaterialBatchAdded))
		}()
	}
	wg.Wait()
	pub.Close()

	events, err := store.ListByEntity(context.Background(), audit.EntityPassport, "9")
	require.NoError(t, err)
	assert.Len(t, events, 50)
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("store offline")
}

func (failingStore) ListByEntity(context.Context, audit.EntityKind, string) ([]audit.Event, error) {
	return nil, nil
}

type blockingStore struct {
	mu      sync.Mutex
	entered bool
	release chan struct{}
}

func (b *blockingStore) Append(context.Context, audit.Event) error {
	b.mu.Lock()
	b.entered = true
	b.mu.Unlock()
	<-b.release
	return nil
}

func (b *blockingStore) started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entered
}

func (b *blockingStore) ListByEntity(context.Context, audit.EntityKind, string) ([]audit.Event, error) {
	return nil, nil
}
