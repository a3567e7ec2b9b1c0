package runstore

import (
	"sort"
	"sync"
	"time"

	"github.com/KaramelBytes/segmenta-cli/internal/progress"
)

// State is the lifecycle phase of a tracked run.
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Status is the latest known progress of one run.
type Status struct {
	Key       string    `json:"key"`
	State     State     `json:"state"`
	Stage     string    `json:"stage"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	Err       string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker is a concurrency-safe registry of run statuses keyed by an
// arbitrary run key (usually the input path). Subscribers receive every
// update on a buffered channel; updates are dropped for subscribers that fall
// behind.
type Tracker struct {
	mu     sync.Mutex
	status map[string]Status
	subs   map[int]chan Status
	nextID int
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{status: map[string]Status{}, subs: map[int]chan Status{}}
}

// Queue registers key as waiting to run.
func (t *Tracker) Queue(key string) {
	t.set(Status{Key: key, State: StateQueued})
}

// Callback returns a progress function that records updates for key.
func (t *Tracker) Callback(key string) progress.Func {
	return func(stage string, percent int, message string) {
		t.set(Status{Key: key, State: StateRunning, Stage: stage, Percent: percent, Message: message})
	}
}

// Finish marks key done, or failed when err is non-nil.
func (t *Tracker) Finish(key string, err error) {
	t.mu.Lock()
	st := t.status[key]
	t.mu.Unlock()
	st.Key = key
	if err != nil {
		st.State, st.Err = StateFailed, err.Error()
	} else {
		st.State, st.Percent = StateDone, 100
	}
	t.set(st)
}

// Get returns the status of key.
func (t *Tracker) Get(key string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.status[key]
	return st, ok
}

// Snapshot returns every status sorted by key.
func (t *Tracker) Snapshot() []Status {
	t.mu.Lock()
	out := make([]Status, 0, len(t.status))
	for _, st := range t.status {
		out = append(out, st)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Subscribe returns a channel of updates and a function that closes it.
func (t *Tracker) Subscribe(buffer int) (<-chan Status, func()) {
	ch := make(chan Status, buffer)
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	t.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(ch)
		})
	}
}

func (t *Tracker) set(st Status) {
	st.UpdatedAt = time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status[st.Key] = st
	for _, ch := range t.subs {
		select {
		case ch <- st:
		default:
		}
	}
}
