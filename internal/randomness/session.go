package randomness

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is a step of the submission lifecycle: idle -> submitting -> succeeded|failed.
// StateSucceeded and StateFailed keep the last result for display and otherwise
// behave exactly like StateIdle.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var errEmptyHash = errors.New("submission returned no transaction hash")

// Submitter executes a call batch as one atomic transaction and returns its hash.
type Submitter interface {
	Execute(ctx context.Context, batch CallBatch) (string, error)
}

// Snapshot is the caller-visible state of a Session.
type Snapshot struct {
	State        State            `json:"state"`
	Seed         string           `json:"seed"`
	Mode         Mode             `json:"mode"`
	ResolvedMode Mode             `json:"resolved_mode,omitempty"`
	Env          Environment      `json:"environment"`
	Batch        CallBatch        `json:"batch,omitempty"`
	TxHash       string           `json:"tx_hash,omitempty"`
	Err          *SubmissionError `json:"error,omitempty"`
}

// Loading reports whether a submission is outstanding.
func (s Snapshot) Loading() bool { return s.State == StateSubmitting }

// Done reports whether the last submission finished.
func (s Snapshot) Done() bool { return s.State == StateSucceeded || s.State == StateFailed }

// EventKind identifies an input to the session.
type EventKind int

const (
	EventSetSeed EventKind = iota + 1
	EventSetMode
	EventSetEnvironment
	EventTrigger
	EventReset
)

// Event is a state transition request delivered to Session.Run.
type Event struct {
	Kind EventKind
	Seed string
	Mode Mode
	Env  Environment

	reply chan error
}

type completion struct {
	hash string
	err  error
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Params    Params
	Mode      Mode
	Seed      string
	Env       Environment
	Submitter Submitter
	// OnChange is called from the Run goroutine after every transition.
	OnChange func(Snapshot)
}

// Session owns the seed text, mode toggle and last result of one operator and
// serialises their actions through a single event loop.
type Session struct {
	params    Params
	submitter Submitter
	onChange  func(Snapshot)

	events chan Event
	done   chan completion

	mu   sync.RWMutex
	snap Snapshot
}

// NewSession creates an idle session. Run must be started before events are sent.
func NewSession(cfg SessionConfig) *Session {
	seed := cfg.Seed
	if seed == "" {
		seed = DefaultSeed
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeAuto
	}
	return &Session{
		params:    cfg.Params,
		submitter: cfg.Submitter,
		onChange:  cfg.OnChange,
		events:    make(chan Event),
		done:      make(chan completion, 1),
		snap: Snapshot{
			State: StateIdle,
			Seed:  seed,
			Mode:  mode,
			Env:   cfg.Env,
		},
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Run processes events until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			err := s.apply(ctx, ev)
			if ev.reply != nil {
				ev.reply <- err
			}
		case c := <-s.done:
			s.complete(c)
		}
	}
}

// Send delivers ev to the event loop and waits for it to be accepted or rejected.
// For EventTrigger acceptance means the batch was built and handed to the submitter;
// the outcome arrives later through OnChange and Snapshot.
func (s *Session) Send(ctx context.Context, ev Event) error {
	ev.reply = make(chan error, 1)
	select {
	case s.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ev.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetSeed replaces the seed text.
func (s *Session) SetSeed(ctx context.Context, seed string) error {
	return s.Send(ctx, Event{Kind: EventSetSeed, Seed: seed})
}

// SetMode replaces the mode toggle.
func (s *Session) SetMode(ctx context.Context, mode Mode) error {
	return s.Send(ctx, Event{Kind: EventSetMode, Mode: mode})
}

// SetEnvironment records a new account/network context.
func (s *Session) SetEnvironment(ctx context.Context, env Environment) error {
	return s.Send(ctx, Event{Kind: EventSetEnvironment, Env: env})
}

// Trigger starts a submission with the current seed and mode.
func (s *Session) Trigger(ctx context.Context) error {
	return s.Send(ctx, Event{Kind: EventTrigger})
}

// Reset clears the last result.
func (s *Session) Reset(ctx context.Context) error {
	return s.Send(ctx, Event{Kind: EventReset})
}

func (s *Session) apply(ctx context.Context, ev Event) error {
	next := s.Snapshot()

	switch ev.Kind {
	case EventSetSeed:
		if next.Loading() {
			return ErrSubmissionInProgress
		}
		next.Seed = ev.Seed

	case EventSetMode:
		if next.Loading() {
			return ErrSubmissionInProgress
		}
		next.Mode = ev.Mode

	case EventSetEnvironment:
		next.Env = ev.Env

	case EventTrigger:
		if next.Loading() {
			return ErrSubmissionInProgress
		}
		if err := next.Env.Check(); err != nil {
			return err
		}
		mode := ResolveMode(next.Mode, next.Env.NetworkName)
		batch, err := BuildBatch(next.Seed, mode, s.params)
		if err != nil {
			return err
		}
		if s.submitter == nil {
			return fmt.Errorf("no submitter configured")
		}

		next.State = StateSubmitting
		next.ResolvedMode = mode
		next.Batch = batch
		next.TxHash = ""
		next.Err = nil

		go func() {
			hash, err := s.submitter.Execute(ctx, batch)
			s.done <- completion{hash: hash, err: err}
		}()

	case EventReset:
		if next.Loading() {
			return ErrSubmissionInProgress
		}
		next.State = StateIdle
		next.Batch = nil
		next.TxHash = ""
		next.Err = nil

	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}

	s.publish(next)
	return nil
}

func (s *Session) complete(c completion) {
	next := s.Snapshot()
	switch {
	case c.err != nil:
		next.State = StateFailed
		next.Err = Classify(c.err)
	case c.hash == "":
		next.State = StateFailed
		next.Err = Classify(errEmptyHash)
	default:
		next.State = StateSucceeded
		next.TxHash = c.hash
	}
	s.publish(next)
}

func (s *Session) publish(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snap)
	}
}
