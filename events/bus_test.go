package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (r *captureRecorder) Record(evt Event) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func (r *captureRecorder) recorded() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func TestBusDeliversEvents(t *testing.T) {
	rec := &captureRecorder{}
	bus := NewBus(rec, nil)

	bus.Publish(Event{Type: ReportCreated, UserID: 3, Meta: map[string]any{"report_id": 12}})
	bus.Publish(Event{Type: ReportDeleted, UserID: 3})
	bus.Close()

	got := rec.recorded()
	require.Len(t, got, 2)
	assert.Equal(t, ReportCreated, got[0].Type)
	assert.Equal(t, ReportDeleted, got[1].Type)
	assert.Equal(t, uint(3), got[0].UserID)
}

func TestBusRecorderFailureDoesNotPropagate(t *testing.T) {
	rec := &captureRecorder{err: errors.New("db down")}
	bus := NewBus(rec, nil)

	// Publish must not panic or block even when every record fails.
	for i := 0; i < 10; i++ {
		bus.Publish(Event{Type: TaskUpdated})
	}
	bus.Close()
	assert.Len(t, rec.recorded(), 10)
}

func TestBusDropsWhenSaturated(t *testing.T) {
	rec := &captureRecorder{block: make(chan struct{})}
	bus := NewBus(rec, nil)

	// One event may be in flight in the worker; fill the buffer past capacity.
	published := defaultBufferSize + 50
	done := make(chan struct{})
	go func() {
		for i := 0; i < published; i++ {
			bus.Publish(Event{Type: InventoryChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a saturated bus")
	}

	close(rec.block)
	bus.Close()
	assert.Less(t, len(rec.recorded()), published)
}

func TestEncodeMeta(t *testing.T) {
	assert.Equal(t, "{}", EncodeMeta(nil))
	assert.JSONEq(t, `{"report_id":5}`, EncodeMeta(map[string]any{"report_id": 5}))
	// Unencodable values degrade to an empty object.
	assert.Equal(t, "{}", EncodeMeta(map[string]any{"bad": func() {}}))
}
