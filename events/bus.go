package events

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event types emitted by the handlers.
const (
	ReportCreated    = "report_created"
	ReportDownloaded = "report_downloaded"
	ReportDeleted    = "report_deleted"
	ProjectCreated   = "project_created"
	ProjectUpdated   = "project_updated"
	ProjectDeleted   = "project_deleted"
	TaskCreated      = "task_created"
	TaskUpdated      = "task_updated"
	TaskDeleted      = "task_deleted"
	ExperimentSaved  = "experiment_saved"
	OrderPlaced      = "order_placed"
	InventoryChanged = "inventory_changed"
	UserLoggedIn     = "user_logged_in"
)

// Event is a single audit entry flowing through the bus.
type Event struct {
	Type        string
	Description string
	UserID      uint
	Meta        map[string]any
}

// Recorder persists events. The gorm implementation lives in recorder.go;
// tests plug in a fake.
type Recorder interface {
	Record(evt Event) error
}

const defaultBufferSize = 256

// Bus decouples request handlers from activity persistence. Publish never
// blocks and never returns an error to the caller; a failed or dropped
// event only costs an audit row, not the request.
type Bus struct {
	recorder Recorder
	log      *zap.SugaredLogger
	ch       chan Event
	wg       sync.WaitGroup

	closeOnce sync.Once
}

// NewBus starts the delivery worker. Call Close during shutdown to drain
// buffered events.
func NewBus(recorder Recorder, log *zap.SugaredLogger) *Bus {
	b := &Bus{
		recorder: recorder,
		log:      log,
		ch:       make(chan Event, defaultBufferSize),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

func (b *Bus) run() {
	defer b.wg.Done()
	for evt := range b.ch {
		if err := b.recorder.Record(evt); err != nil && b.log != nil {
			b.log.Warnf("activity record failed for %s: %v", evt.Type, err)
		}
	}
}

// Publish enqueues an event. When the buffer is full the event is dropped
// with a warning rather than stalling the request.
func (b *Bus) Publish(evt Event) {
	select {
	case b.ch <- evt:
	default:
		if b.log != nil {
			b.log.Warnf("activity bus full, dropping %s", evt.Type)
		}
	}
}

// Close stops accepting events and waits for buffered ones to be recorded.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.ch)
	})
	b.wg.Wait()
}

// EncodeMeta renders event metadata as a JSON object string for storage.
// Unencodable values degrade to an empty object instead of failing.
func EncodeMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return "{}"
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}
