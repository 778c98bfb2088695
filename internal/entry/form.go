// Package entry implements the admin vote-entry form for one center.
//
// A Form moves through NoCenterSelected, Loading, Ready and Saving. Counts are
// only editable while Ready, and a save always ends with the persisted record
// reloaded from the store.
package entry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tally-backend/internal/model"
	"tally-backend/internal/parse"
	"tally-backend/internal/store"
	"tally-backend/internal/tally"
)

// State is the lifecycle position of a Form.
type State int

const (
	NoCenterSelected State = iota
	Loading
	Ready
	Saving
)

func (s State) String() string {
	switch s {
	case NoCenterSelected:
		return "no-center-selected"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Saving:
		return "saving"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrNoCenter         = errors.New("no center selected")
	ErrNotReady         = errors.New("vote form is not ready")
	ErrUnknownCandidate = errors.New("unknown candidate")
	ErrSaveFailed       = errors.New("error saving votes")
)

// Store is what the form reads and writes.
type Store interface {
	GetCenter(ctx context.Context, id string) (model.Center, error)
	ListCandidates(ctx context.Context) ([]model.Candidate, error)
	GetVote(ctx context.Context, centerID string) (model.Vote, error)
	SaveVote(ctx context.Context, centerID string, counts map[string]int, now time.Time) (model.Vote, bool, error)
}

// Form holds the editable counts of one center. It is not safe for
// concurrent use; handlers build one per request.
type Form struct {
	store Store
	state State

	center      model.Center
	candidates  []model.Candidate
	counts      map[string]int
	fieldErrors map[string]string
	vote        *model.Vote
}

// NewForm returns a form with no center selected.
func NewForm(s Store) *Form {
	return &Form{store: s}
}

func (f *Form) State() State { return f.state }

func (f *Form) Center() model.Center { return f.center }

func (f *Form) Candidates() []model.Candidate { return f.candidates }

// Vote is the loaded record, nil when the center has none yet.
func (f *Form) Vote() *model.Vote { return f.vote }

func (f *Form) Counts() map[string]int { return copyMap(f.counts) }

func (f *Form) FieldErrors() map[string]string { return copyMap(f.fieldErrors) }

// Select loads centerID and its current record, if any. Candidates without a
// stored count start at zero. On failure the form returns to NoCenterSelected.
func (f *Form) Select(ctx context.Context, centerID string) error {
	if centerID == "" {
		f.reset()
		return ErrNoCenter
	}

	f.state = Loading
	if err := f.load(ctx, centerID); err != nil {
		f.reset()
		return err
	}
	return nil
}

func (f *Form) load(ctx context.Context, centerID string) error {
	var (
		center     model.Center
		candidates []model.Candidate
		vote       *model.Vote
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		center, err = f.store.GetCenter(gctx, centerID)
		return err
	})
	g.Go(func() (err error) {
		candidates, err = f.store.ListCandidates(gctx)
		return err
	})
	g.Go(func() error {
		v, err := f.store.GetVote(gctx, centerID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		vote = &v
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load center %s: %w", centerID, err)
	}

	f.center = center
	f.candidates = candidates
	f.vote = vote
	f.counts = make(map[string]int, len(candidates))
	f.fieldErrors = nil

	var stored map[string]int
	if vote != nil {
		stored = vote.CountMap()
	}
	for _, c := range candidates {
		f.counts[c.ID] = stored[c.ID]
	}
	f.state = Ready
	return nil
}

func (f *Form) reset() {
	*f = Form{store: f.store}
}

// SetCount updates one candidate's count from raw input. Non-numeric input is
// rejected and leaves the previous value in place. Counts over the center's
// ceiling are kept but flagged, which blocks saving.
func (f *Form) SetCount(candidateID, raw string) error {
	if f.state != Ready {
		return ErrNotReady
	}
	if _, ok := f.counts[candidateID]; !ok {
		f.setFieldError(candidateID, "Unknown candidate")
		return fmt.Errorf("%w: %s", ErrUnknownCandidate, candidateID)
	}

	n, err := parse.ParseCount(raw)
	if err != nil {
		f.setFieldError(candidateID, "Votes must contain digits only")
		return err
	}

	f.counts[candidateID] = n
	if msg := tally.CountError(n, f.center.RegisteredVoters); msg != "" {
		f.setFieldError(candidateID, msg)
	} else {
		delete(f.fieldErrors, candidateID)
	}
	return nil
}

// SetCounts applies SetCount to every entry and joins the errors.
func (f *Form) SetCounts(raw map[string]string) error {
	if f.state != Ready {
		return ErrNotReady
	}
	var errs []error
	for id, value := range raw {
		if err := f.SetCount(id, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Form) setFieldError(candidateID, msg string) {
	if f.fieldErrors == nil {
		f.fieldErrors = make(map[string]string)
	}
	f.fieldErrors[candidateID] = msg
}

// Total sums the current counts.
func (f *Form) Total() int {
	total := 0
	for _, n := range f.counts {
		total += n
	}
	return total
}

// TotalError is the message shown when the total exceeds the ceiling.
func (f *Form) TotalError() string {
	if f.state != Ready && f.state != Saving {
		return ""
	}
	return tally.TotalError(f.Total(), f.center.RegisteredVoters)
}

// CanSave reports whether the save action is enabled.
func (f *Form) CanSave() bool {
	return f.state == Ready && len(f.fieldErrors) == 0 && f.TotalError() == ""
}

// Validation returns the form's current problems, or nil.
func (f *Form) Validation() *tally.ValidationError {
	verr := &tally.ValidationError{Total: f.TotalError()}
	for id, msg := range f.fieldErrors {
		verr.SetField(id, msg)
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// Save persists the counts and reloads the center's record. The counts are
// revalidated against the center before writing regardless of CanSave. The
// bool is true when the record was created by this save.
//
// A store failure returns the form to Ready with its counts intact and an
// error wrapping ErrSaveFailed.
func (f *Form) Save(ctx context.Context, now time.Time) (bool, error) {
	switch f.state {
	case NoCenterSelected:
		return false, ErrNoCenter
	case Ready:
	default:
		return false, ErrNotReady
	}

	if verr := f.Validation(); verr != nil {
		return false, verr
	}
	if err := tally.ValidateCounts(f.center, f.candidates, f.counts); err != nil {
		return false, err
	}

	f.state = Saving
	_, created, err := f.store.SaveVote(ctx, f.center.ID, f.counts, now)
	if err != nil {
		f.state = Ready
		return false, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if err := f.load(ctx, f.center.ID); err != nil {
		f.state = Ready
		return created, err
	}
	return created, nil
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
