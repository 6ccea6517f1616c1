package reconcile

import (
	"context"
	"fmt"

	"github.com/adamokeah/shamzam/internal/catalog"
	"github.com/adamokeah/shamzam/internal/codec"
	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/recognition"
)

// TrackFinder looks up a track by its exact (title, artist) key, returning
// a NotFound error when there is none. It is the only catalog access the
// reconciler needs; it never writes.
type TrackFinder interface {
	FindByKey(ctx context.Context, title, artist string) (*catalog.Track, error)
}

// OutcomeRecorder counts finished reconciliations by label.
type OutcomeRecorder interface {
	RecordOutcome(outcome string)
}

type nopOutcomeRecorder struct{}

func (nopOutcomeRecorder) RecordOutcome(string) {}

// Reconciler combines a Recognizer and a TrackFinder.
type Reconciler struct {
	recognizer recognition.Recognizer
	finder     TrackFinder
	log        logger.Logger
	outcomes   OutcomeRecorder
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the reconciler logger.
func WithLogger(log logger.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// WithOutcomeRecorder counts outcomes, e.g. into Prometheus.
func WithOutcomeRecorder(rec OutcomeRecorder) Option {
	return func(r *Reconciler) {
		if rec != nil {
			r.outcomes = rec
		}
	}
}

// New returns a Reconciler.
func New(recognizer recognition.Recognizer, finder TrackFinder, opts ...Option) *Reconciler {
	r := &Reconciler{
		recognizer: recognizer,
		finder:     finder,
		log:        logger.NewNopLogger(),
		outcomes:   nopOutcomeRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile recognizes fragment and looks the match up in the catalog.
//
// Recognizer errors (Validation, ProviderAuth, ProviderUnavailable) and
// catalog errors other than NotFound are returned unchanged. An empty
// fragment fails validation without calling the recognizer.
func (r *Reconciler) Reconcile(ctx context.Context, fragment codec.RawBytes) (outcome Outcome, err error) {
	defer func() {
		if err != nil {
			r.outcomes.RecordOutcome(OutcomeFailed)
			return
		}
		r.outcomes.RecordOutcome(outcome.Kind.String())
	}()

	if len(fragment) == 0 {
		return Outcome{}, errors.New(recognition.ErrEmptyFragment).
			Component("reconcile").
			Category(errors.CategoryValidation).
			Build()
	}

	log := r.log.WithContext(ctx)

	result, err := r.recognizer.Recognize(ctx, fragment)
	if err != nil {
		log.Debug("recognition failed", logger.Error(err))
		return Outcome{}, err
	}
	if !result.IsMatch() {
		return Outcome{Kind: Unrecognized}, nil
	}

	match := result.Match
	track, err := r.finder.FindByKey(ctx, match.Title, match.Artist)
	switch {
	case errors.IsNotFound(err):
		log.Debug("recognized track not in catalog",
			logger.String("title", match.Title),
			logger.String("artist", match.Artist))
		return Outcome{Kind: RecognizedButAbsent, Recognized: match}, nil
	case err != nil:
		return Outcome{}, err
	case track == nil:
		return Outcome{}, errors.New(fmt.Errorf("catalog lookup returned no track and no error")).
			Component("reconcile").
			Category(errors.CategoryStorage).
			Build()
	}

	info := track.Info()
	log.Debug("recognized track found in catalog",
		logger.Uint64("track_id", uint64(info.ID)),
		logger.String("title", info.Title),
		logger.String("artist", info.Artist))
	return Outcome{
		Kind:       RecognizedAndCataloged,
		Recognized: match,
		Track:      &info,
		Payload:    track.Payload,
	}, nil
}
