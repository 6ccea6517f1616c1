// Package service exposes the catalog and recognition operations shared by
// the HTTP API and the command line.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adamokeah/shamzam/internal/catalog"
	"github.com/adamokeah/shamzam/internal/codec"
	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/reconcile"
)

const component = "service"

// RecognitionsTopic is the subtopic outcome events are published under.
const RecognitionsTopic = "recognitions"

// Publisher delivers outcome events, e.g. over MQTT.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Service implements AddTrack, ListTracks, DeleteTrack, Recognize and Reset.
type Service struct {
	store      catalog.Store
	reconciler *reconcile.Reconciler
	publisher  Publisher
	topic      string
	log        logger.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPublisher publishes every completed recognition to topic/recognitions.
func WithPublisher(p Publisher, topic string) Option {
	return func(s *Service) {
		s.publisher = p
		s.topic = topic
	}
}

// New returns a Service over store and reconciler.
func New(store catalog.Store, reconciler *reconcile.Reconciler, opts ...Option) *Service {
	s := &Service{
		store:      store,
		reconciler: reconciler,
		log:        logger.NewNopLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validationError(format string, args ...any) error {
	return errors.New(fmt.Errorf(format, args...)).
		Component(component).
		Category(errors.CategoryValidation).
		Build()
}

// AddTrack stores a new track and returns its id.
func (s *Service) AddTrack(ctx context.Context, title, artist string, payload codec.RawBytes) (uint, error) {
	if len(payload) == 0 {
		return 0, validationError("audio payload is missing")
	}
	id, err := s.store.Insert(ctx, title, artist, payload)
	if err != nil {
		return 0, err
	}
	s.log.WithContext(ctx).Info("track added",
		logger.Uint64("track_id", uint64(id)),
		logger.String("title", title),
		logger.String("artist", artist))
	return id, nil
}

// AddEncodedTrack stores a track whose payload arrives already encoded.
// Malformed text is a validation failure of the request.
func (s *Service) AddEncodedTrack(ctx context.Context, title, artist, encoded string) (uint, error) {
	text, err := codec.ParseEncoded(encoded)
	if err != nil {
		return 0, errors.New(fmt.Errorf("payload: %w", err)).
			Component(component).
			Category(errors.CategoryValidation).
			Build()
	}
	raw, err := codec.Decode(text)
	if err != nil {
		return 0, validationError("payload: %v", err)
	}
	return s.AddTrack(ctx, title, artist, raw)
}

// ListTracks returns every track without payload, in ascending id order.
func (s *Service) ListTracks(ctx context.Context) ([]catalog.TrackInfo, error) {
	return s.store.List(ctx)
}

// CountTracks returns the number of cataloged tracks.
func (s *Service) CountTracks(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// DeleteRequest selects tracks to delete: either ID, or Title and Artist.
type DeleteRequest struct {
	ID     uint
	Title  string
	Artist string
}

func (r DeleteRequest) byKey() bool { return r.Title != "" || r.Artist != "" }

// DeleteTrack removes the selected tracks and returns how many were removed.
// Removing nothing is a NotFound error.
func (s *Service) DeleteTrack(ctx context.Context, req DeleteRequest) (int64, error) {
	switch {
	case req.ID != 0 && req.byKey():
		return 0, validationError("specify either an id or a title and artist, not both")
	case req.ID != 0:
		deleted, err := s.store.DeleteByID(ctx, req.ID)
		if err != nil {
			return 0, err
		}
		if !deleted {
			return 0, errors.New(catalog.ErrTrackNotFound).
				Component(component).
				Category(errors.CategoryNotFound).
				Context("track_id", req.ID).
				Build()
		}
		return 1, nil
	case req.Title == "" || req.Artist == "":
		return 0, validationError("a track id or both title and artist are required")
	}

	removed, err := s.store.DeleteByKey(ctx, req.Title, req.Artist)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, errors.New(catalog.ErrTrackNotFound).
			Component(component).
			Category(errors.CategoryNotFound).
			Context("title", req.Title).
			Context("artist", req.Artist).
			Build()
	}
	return removed, nil
}

// Recognize identifies fragment and looks it up in the catalog. The outcome
// is published when a publisher is configured and ctx is still live.
func (s *Service) Recognize(ctx context.Context, fragment codec.RawBytes) (reconcile.Outcome, error) {
	outcome, err := s.reconciler.Reconcile(ctx, fragment)
	if err != nil {
		return reconcile.Outcome{}, err
	}
	s.publish(ctx, outcome)
	return outcome, nil
}

// Reset empties the catalog and restarts id allocation.
func (s *Service) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}

// OutcomeEvent is the published form of a recognition outcome. It never
// carries the audio payload.
type OutcomeEvent struct {
	Outcome    string         `json:"outcome"`
	Title      string         `json:"title,omitempty"`
	Artist     string         `json:"artist,omitempty"`
	TrackID    uint           `json:"track_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Recognized time.Time      `json:"recognized_at"`
}

// NewOutcomeEvent builds the event for outcome.
func NewOutcomeEvent(outcome reconcile.Outcome, at time.Time) OutcomeEvent {
	event := OutcomeEvent{Outcome: outcome.Kind.String(), Recognized: at.UTC()}
	if outcome.Recognized != nil {
		event.Title = outcome.Recognized.Title
		event.Artist = outcome.Recognized.Artist
		event.Metadata = outcome.Recognized.Metadata
	}
	if outcome.Track != nil {
		event.TrackID = outcome.Track.ID
	}
	return event
}

func (s *Service) publish(ctx context.Context, outcome reconcile.Outcome) {
	if s.publisher == nil || ctx.Err() != nil {
		return
	}

	log := s.log.WithContext(ctx)
	payload, err := json.Marshal(NewOutcomeEvent(outcome, s.now()))
	if err != nil {
		log.Warn("failed to encode outcome event", logger.Error(err))
		return
	}
	topic := s.topic + "/" + RecognitionsTopic
	if s.topic == "" {
		topic = RecognitionsTopic
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		log.Warn("failed to publish outcome event",
			logger.String("topic", topic),
			logger.Error(err))
	}
}
