package probe

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status represents the lifecycle state of an iteration.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Iteration records one pass of the upload loop:
//
//	pending → running → complete | failed.
type Iteration struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	Object    string    `json:"object"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Listed is the number of objects the bucket reported. Populated once the
	// iteration reaches StatusComplete.
	Listed int `json:"listed"`

	// Error is non-empty if the iteration reached StatusFailed.
	Error string `json:"error,omitempty"`
}

// Recorder keeps track of iterations so that they can be inspected while the
// loop is running.
type Recorder interface {
	Create(id string, seq int, object string) (*Iteration, error)
	Get(id string) (*Iteration, error)
	List() []*Iteration
	MarkRunning(id string) error
	MarkComplete(id string, listed int) error
	MarkFailed(id string, err error) error
}

// MemoryRecorder is a concurrency-safe in-memory Recorder.
type MemoryRecorder struct {
	mu         sync.RWMutex
	iterations map[string]*Iteration
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{iterations: make(map[string]*Iteration)}
}

func (r *MemoryRecorder) Create(id string, seq int, object string) (*Iteration, error) {
	now := time.Now()
	it := &Iteration{
		ID:        id,
		Sequence:  seq,
		Object:    object,
		Status:    StatusPending,
		StartedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.iterations[id]; ok {
		return nil, fmt.Errorf("iteration %q already exists", id)
	}
	r.iterations[id] = it

	copy := *it
	return &copy, nil
}

func (r *MemoryRecorder) Get(id string) (*Iteration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.iterations[id]
	if !ok {
		return nil, fmt.Errorf("iteration %q not found", id)
	}
	// Return a copy to prevent callers from mutating internal state.
	copy := *it
	return &copy, nil
}

// List returns copies of every recorded iteration ordered by sequence.
func (r *MemoryRecorder) List() []*Iteration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Iteration, 0, len(r.iterations))
	for _, it := range r.iterations {
		copy := *it
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (r *MemoryRecorder) MarkRunning(id string) error {
	return r.update(id, func(it *Iteration) {
		it.Status = StatusRunning
	})
}

func (r *MemoryRecorder) MarkComplete(id string, listed int) error {
	return r.update(id, func(it *Iteration) {
		it.Status = StatusComplete
		it.Listed = listed
	})
}

func (r *MemoryRecorder) MarkFailed(id string, err error) error {
	return r.update(id, func(it *Iteration) {
		it.Status = StatusFailed
		it.Error = err.Error()
	})
}

func (r *MemoryRecorder) update(id string, fn func(*Iteration)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.iterations[id]
	if !ok {
		return fmt.Errorf("iteration %q not found", id)
	}
	fn(it)
	it.UpdatedAt = time.Now()
	return nil
}

// nopRecorder discards everything. Get always reports the iteration missing.
type nopRecorder struct{}

func (nopRecorder) Create(id string, seq int, object string) (*Iteration, error) {
	return &Iteration{ID: id, Sequence: seq, Object: object, Status: StatusPending}, nil
}

func (nopRecorder) Get(id string) (*Iteration, error) {
	return nil, fmt.Errorf("iteration %q not found", id)
}

func (nopRecorder) List() []*Iteration { return []*Iteration{} }

func (nopRecorder) MarkRunning(string) error       { return nil }
func (nopRecorder) MarkComplete(string, int) error { return nil }
func (nopRecorder) MarkFailed(string, error) error { return nil }
