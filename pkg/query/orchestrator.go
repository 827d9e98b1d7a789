// Package query runs the lifecycle of a single question: guard checks,
// submission to the backend, and reconciliation of the three possible
// outcomes (answer, engine-reported failure, transport failure).
package query

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/emerjence/billctl/pkg/api"
	"github.com/emerjence/billctl/pkg/session"
)

var (
	// ErrAuthRequired is returned when no authenticated session exists.
	ErrAuthRequired = errors.New("sign in before asking questions")

	// ErrEmptyQuery is returned for blank question text.
	ErrEmptyQuery = errors.New("enter a question first")

	// ErrNoFileSelected is returned when file selection is required and
	// nothing is selected.
	ErrNoFileSelected = errors.New("select a file first")

	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("a question is already being processed")
)

// User-facing fallbacks. Remote detail text replaces FallbackFailure when
// the backend provides one; transport problems always get the generic
// message, never raw diagnostics.
const (
	FallbackFailure  = "The question could not be processed. Please try again."
	TransportFailure = "Could not reach the analysis service. Please try again."
)

// State is the orchestrator's position in the submission cycle.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
)

// Outcome records how the most recent cycle ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

// Remote is the slice of the backend the orchestrator needs.
type Remote interface {
	Query(ctx context.Context, username, text, fileName string) (api.QueryResult, error)
}

// Selection exposes the catalog's current selection.
type Selection interface {
	Selected() string
}

// Recorder receives successful exchanges for local history. Failures to
// record are logged, never surfaced.
type Recorder interface {
	Record(ctx context.Context, identity, question, fileName string, res api.QueryResult) error
}

// Orchestrator owns one in-flight question at a time. Exactly one of
// Result/Failure is populated after a cycle; a new submission clears both
// before anything else happens.
type Orchestrator struct {
	remote  Remote
	session session.View
	files   Selection
	history Recorder // may be nil

	// RequireFileSelection enables the strict variant: submitting without a
	// selected file fails locally. When false, an empty selection means
	// "all files".
	RequireFileSelection bool

	mu      sync.Mutex
	state   State
	outcome Outcome
	result  *api.QueryResult
	failure string
	loading bool
}

// New creates an orchestrator. history may be nil to disable recording.
func New(remote Remote, sess session.View, files Selection, history Recorder) *Orchestrator {
	return &Orchestrator{remote: remote, session: sess, files: files, history: history}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Outcome() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcome
}

// Result returns the answer from the last cycle, or nil.
func (o *Orchestrator) Result() *api.QueryResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Failure returns the user-facing failure message from the last cycle, or "".
func (o *Orchestrator) Failure() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failure
}

// Loading reports whether a submission is in flight. It is cleared on every
// terminal path, so the submit affordance always re-enables.
func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// Reset clears all cycle state. Registered with the session controller's
// logout.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.state = StateIdle
	o.outcome = OutcomeNone
	o.result = nil
	o.failure = ""
	o.loading = false
	o.mu.Unlock()
}

// Submit runs one full cycle for text. Guard failures (no session, blank
// text, missing selection in strict mode) return before any network call.
// The returned error mirrors what Failure() reports; callers driving a UI
// can ignore it and read the accessors instead.
func (o *Orchestrator) Submit(ctx context.Context, text string) error {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return ErrBusy
	}
	o.state = StateValidating
	o.outcome = OutcomeNone
	o.result = nil
	o.failure = ""

	if err := o.validateLocked(text); err != nil {
		o.failure = err.Error()
		o.outcome = OutcomeFailed
		o.state = StateIdle
		o.mu.Unlock()
		return err
	}

	identity := o.session.Identity()
	epoch := o.session.Epoch()
	target := o.files.Selected()
	o.state = StateSubmitting
	o.loading = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.loading = false
		o.state = StateIdle
		o.mu.Unlock()
	}()

	res, err := o.remote.Query(ctx, identity, text, target)

	o.mu.Lock()
	if o.session.Epoch() != epoch {
		// The session ended while the request was in flight. Do not
		// repopulate anything.
		o.mu.Unlock()
		slog.Debug("discarding stale query response", "identity", identity)
		return nil
	}

	switch {
	case err == nil:
		o.result = &res
		o.outcome = OutcomeSucceeded
		o.mu.Unlock()
		o.record(ctx, identity, text, target, res)
		return nil

	case isRemote(err):
		msg := err.Error()
		var re *api.RemoteError
		if errors.As(err, &re) && re.Detail == "" {
			msg = FallbackFailure
		}
		o.failure = msg
		o.outcome = OutcomeFailed
		o.mu.Unlock()
		return err

	default:
		o.failure = TransportFailure
		o.outcome = OutcomeFailed
		o.mu.Unlock()
		slog.Warn("query transport failure", "identity", identity, "error", err)
		return err
	}
}

func (o *Orchestrator) validateLocked(text string) error {
	if !o.session.Authenticated() {
		return ErrAuthRequired
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyQuery
	}
	if o.RequireFileSelection && o.files.Selected() == "" {
		return ErrNoFileSelected
	}
	return nil
}

func (o *Orchestrator) record(ctx context.Context, identity, question, fileName string, res api.QueryResult) {
	if o.history == nil {
		return
	}
	if err := o.history.Record(ctx, identity, question, fileName, res); err != nil {
		slog.Warn("failed to record exchange", "error", err)
	}
}

func isRemote(err error) bool {
	var re *api.RemoteError
	return errors.As(err, &re)
}
