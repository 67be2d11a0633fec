// Package observer carries diagnostic events out of the fetch pipeline.
//
// Pipeline components never log directly; they emit Events and the caller decides how to render
// them.
package observer

import (
	"sync"
	"time"
)

type Kind string

const (
	BranchMissing         Kind = "branch_missing"
	BranchLookupFailed    Kind = "branch_lookup_failed"
	BranchResolved        Kind = "branch_resolved"
	MirrorAttemptFailed   Kind = "mirror_attempt_failed"
	MirrorRetry           Kind = "mirror_retry"
	MirrorExhausted       Kind = "mirror_exhausted"
	KeyFileDecoded        Kind = "key_file_decoded"
	KeyFileMalformed      Kind = "key_file_malformed"
	ManifestSkipped       Kind = "manifest_skipped"
	ManifestSaved         Kind = "manifest_saved"
	ManifestFailed        Kind = "manifest_failed"
	RepositoryWon         Kind = "repository_won"
	RepositoryEmpty       Kind = "repository_empty"
	RepositoriesExhausted Kind = "repositories_exhausted"
)

type Event struct {
	Kind        Kind
	Repository  string
	Branch      string
	Path        string
	URL         string
	Status      int
	RetriesLeft int
	Depots      int
	CommitDate  time.Time
	Err         error
}

type Observer interface {
	Observe(event Event)
}

// Func adapts a function to Observer.
type Func func(Event)

func (fn Func) Observe(event Event) {
	fn(event)
}

type nop struct{}

func (nop) Observe(Event) {}

// Nop discards every event.
func Nop() Observer {
	return nop{}
}

// OrNop returns obs, or Nop when obs is nil.
func OrNop(obs Observer) Observer {
	if obs == nil {
		return Nop()
	}
	return obs
}

// Multi fans an event out to every non-nil observer in order.
func Multi(observers ...Observer) Observer {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return Func(func(event Event) {
		for _, obs := range filtered {
			obs.Observe(event)
		}
	})
}

// Recorder keeps every event. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (recorder *Recorder) Observe(event Event) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.events = append(recorder.events, event)
}

func (recorder *Recorder) Events() []Event {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	out := make([]Event, len(recorder.events))
	copy(out, recorder.events)
	return out
}

// OfKind returns the recorded events of one kind, in order.
func (recorder *Recorder) OfKind(kind Kind) []Event {
	var out []Event
	for _, event := range recorder.Events() {
		if event.Kind == kind {
			out = append(out, event)
		}
	}
	return out
}
