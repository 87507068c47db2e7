package pipeline

import (
	"sync"
	"time"
)

// RunStatus represents the state of a reconstruction run.
type RunStatus string

const (
	StatusQueued      RunStatus = "queued"
	StatusDiscovering RunStatus = "discovering"
	StatusProbing     RunStatus = "probing"
	StatusDownloading RunStatus = "downloading"
	StatusMerging     RunStatus = "merging"
	StatusCompleted   RunStatus = "completed"
	StatusFailed      RunStatus = "failed"
)

// Event is a structured progress notification emitted while a run executes.
type Event struct {
	Stage   string `json:"stage"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Run tracks the state of a single site reconstruction.
type Run struct {
	mu sync.Mutex

	ID       string `json:"run_id"`
	BaseURL  string `json:"base_url"`
	Strategy string `json:"strategy"`

	Status RunStatus `json:"status"`
	Stage  string    `json:"stage"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	document     string
	errors       []string
	events       chan Event
	eventsClosed bool
}

// Progress tracks per-stage counters.
type Progress struct {
	PagesTotal   int      `json:"pages_total"`
	PagesFetched int      `json:"pages_fetched"`
	NativeHits   int      `json:"native_hits"`
	Errors       []string `json:"errors"`
}

// NewRun creates a queued run with a fresh ID.
func NewRun(baseURL, strategy string) *Run {
	now := time.Now()
	return &Run{
		ID:        generateULID(),
		BaseURL:   baseURL,
		Strategy:  strategy,
		Status:    StatusQueued,
		Stage:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		events:    make(chan Event, 64),
	}
}

// Events exposes the run's progress stream. The channel closes when the
// run finishes.
func (r *Run) Events() <-chan Event {
	return r.events
}

// Notify publishes a progress event. Slow or absent consumers never block
// the pipeline; events are dropped when the buffer is full.
func (r *Run) Notify(stage string, current, total int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eventsClosed {
		return
	}
	select {
	case r.events <- Event{Stage: stage, Current: current, Total: total, Message: message}:
	default:
	}
}

// CloseEvents ends the progress stream.
func (r *Run) CloseEvents() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.eventsClosed {
		r.eventsClosed = true
		close(r.events)
	}
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.Stage = stage
	r.UpdatedAt = time.Now()
}

// AddError records an error.
func (r *Run) AddError(err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
	r.Progress.Errors = r.errors
	r.UpdatedAt = time.Now()
}

// SetTotalPages records the fused page count.
func (r *Run) SetTotalPages(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.PagesTotal = n
	r.UpdatedAt = time.Now()
}

// IncrFetched atomically increments the fetched page count and returns the
// new value.
func (r *Run) IncrFetched() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.PagesFetched++
	r.UpdatedAt = time.Now()
	return r.Progress.PagesFetched
}

// SetNativeHits records how many pages resolved to native Markdown.
func (r *Run) SetNativeHits(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.NativeHits = n
	r.UpdatedAt = time.Now()
}

// SetDocument stores the consolidated output.
func (r *Run) SetDocument(doc string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.document = doc
	r.UpdatedAt = time.Now()
}

// Document returns the consolidated output, empty until the run completes.
func (r *Run) Document() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.document
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID       string    `json:"run_id"`
	BaseURL  string    `json:"base_url"`
	Strategy string    `json:"strategy"`
	Status   RunStatus `json:"status"`
	Stage    string    `json:"stage"`
	Progress Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	errs := r.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return RunSnapshot{
		ID:       r.ID,
		BaseURL:  r.BaseURL,
		Strategy: r.Strategy,
		Status:   r.Status,
		Stage:    r.Stage,
		Progress: Progress{
			PagesTotal:   r.Progress.PagesTotal,
			PagesFetched: r.Progress.PagesFetched,
			NativeHits:   r.Progress.NativeHits,
			Errors:       errs,
		},
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Cleanup removes expired runs.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		if now.Sub(run.UpdatedAt) > s.ttl {
			delete(s.runs, id)
		}
	}
}
