package catalog

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/adamokeah/shamzam/internal/codec"
	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/observability/metrics"
)

// Store is the catalog of tracks.
//
// Keys are compared byte for byte: no case folding or whitespace trimming.
// Several tracks may share a key; FindByKey returns the lowest id among them
// and DeleteByKey removes all of them.
type Store interface {
	Insert(ctx context.Context, title, artist string, payload codec.RawBytes) (uint, error)
	List(ctx context.Context) ([]TrackInfo, error)
	FindByKey(ctx context.Context, title, artist string) (*Track, error)
	FindByID(ctx context.Context, id uint) (*Track, error)
	DeleteByID(ctx context.Context, id uint) (bool, error)
	DeleteByKey(ctx context.Context, title, artist string) (int64, error)
	Count(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}

// store implements Store on top of a Manager.
type store struct {
	manager Manager
	db      *gorm.DB
	log     logger.Logger
	metrics metrics.Recorder

	// mu makes Reset exclusive with respect to every other operation.
	mu sync.RWMutex
}

// Option configures a Store.
type Option func(*store)

// WithMetrics records operation counts and latencies.
func WithMetrics(rec metrics.Recorder) Option {
	return func(s *store) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(log logger.Logger) Option {
	return func(s *store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore returns a Store backed by manager. The schema must already be
// initialized.
func NewStore(manager Manager, opts ...Option) Store {
	s := &store{
		manager: manager,
		db:      manager.DB(),
		log:     logger.NewNopLogger(),
		metrics: metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// keyCondition returns the WHERE clause matching a (title, artist) key exactly.
// MySQL's default collations are case-insensitive, so it needs BINARY.
func keyCondition(isMySQL bool) string {
	if isMySQL {
		return "BINARY title = ? AND BINARY artist = ?"
	}
	return "title = ? AND artist = ?"
}

func (s *store) observe(operation string, start time.Time, err error) {
	s.metrics.RecordDuration(operation, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordOperation(operation, metrics.StatusError)
		s.metrics.RecordError(operation, string(errors.KindOf(err)))
		return
	}
	s.metrics.RecordOperation(operation, metrics.StatusSuccess)
}

func validateField(field, value string) error {
	switch {
	case value == "":
		return validationError(field, "must not be empty")
	case !utf8.ValidString(value):
		return validationError(field, "must be valid UTF-8")
	case utf8.RuneCountInString(value) > MaxFieldLength:
		return validationError(field, "must be at most 255 characters")
	case strings.ContainsRune(value, 0):
		return validationError(field, "must not contain NUL characters")
	}
	return nil
}

// Insert encodes payload and stores a new track, returning its id.
func (s *store) Insert(ctx context.Context, title, artist string, payload codec.RawBytes) (id uint, err error) {
	defer func(start time.Time) { s.observe(metrics.OpTrackInsert, start, err) }(time.Now())

	if err := validateField("title", title); err != nil {
		return 0, err
	}
	if err := validateField("artist", artist); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	track := Track{
		Title:   title,
		Artist:  artist,
		Payload: codec.Encode(payload),
	}
	if err := s.db.WithContext(ctx).Create(&track).Error; err != nil {
		return 0, storeError(err, metrics.OpTrackInsert, "title", title, "artist", artist)
	}

	s.log.Debug("track inserted",
		logger.Uint64("track_id", uint64(track.ID)),
		logger.String("title", title),
		logger.String("artist", artist),
		logger.Int("payload_bytes", len(payload)))
	return track.ID, nil
}

// List returns every track without its payload, in ascending id order.
func (s *store) List(ctx context.Context) (infos []TrackInfo, err error) {
	defer func(start time.Time) { s.observe(metrics.OpTrackList, start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	infos = make([]TrackInfo, 0)
	err = s.db.WithContext(ctx).
		Model(&Track{}).
		Select("id", "title", "artist").
		Order("id ASC").
		Find(&infos).Error
	if err != nil {
		return nil, storeError(err, metrics.OpTrackList)
	}
	return infos, nil
}

// FindByKey returns the lowest-id track with exactly this title and artist.
func (s *store) FindByKey(ctx context.Context, title, artist string) (track *Track, err error) {
	defer func(start time.Time) { s.observe(metrics.OpTrackFindByKey, start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	var t Track
	err = s.db.WithContext(ctx).
		Where(keyCondition(s.manager.IsMySQL()), title, artist).
		Order("id ASC").
		Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(metrics.OpTrackFindByKey, "title", title, "artist", artist)
	}
	if err != nil {
		return nil, storeError(err, metrics.OpTrackFindByKey, "title", title, "artist", artist)
	}
	return &t, nil
}

// FindByID returns the track with the given id.
func (s *store) FindByID(ctx context.Context, id uint) (track *Track, err error) {
	defer func(start time.Time) { s.observe(metrics.OpTrackFindByID, start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	var t Track
	err = s.db.WithContext(ctx).Where("id = ?", id).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(metrics.OpTrackFindByID, "track_id", id)
	}
	if err != nil {
		return nil, storeError(err, metrics.OpTrackFindByID, "track_id", id)
	}
	return &t, nil
}

// DeleteByID removes one track and reports whether it existed.
func (s *store) DeleteByID(ctx context.Context, id uint) (deleted bool, err error) {
	defer func(start time.Time) { s.observe(metrics.OpTrackDeleteByID, start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Track{})
	if result.Error != nil {
		return false, storeError(result.Error, metrics.OpTrackDeleteByID, "track_id", id)
	}
	if result.RowsAffected > 0 {
		s.log.Debug("track deleted", logger.Uint64("track_id", uint64(id)))
	}
	return result.RowsAffected > 0, nil
}

// DeleteByKey removes every track with exactly this title and artist and
// returns how many were removed.
func (s *store) DeleteByKey(ctx context.Context, title, artist string) (removed int64, err error) {
	defer func(start time.Time) { s.observe(metrics.OpTrackDeleteByKey, start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := s.db.WithContext(ctx).
		Where(keyCondition(s.manager.IsMySQL()), title, artist).
		Delete(&Track{})
	if result.Error != nil {
		return 0, storeError(result.Error, metrics.OpTrackDeleteByKey, "title", title, "artist", artist)
	}
	if result.RowsAffected > 0 {
		s.log.Debug("tracks deleted by key",
			logger.String("title", title),
			logger.String("artist", artist),
			logger.Int64("removed", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// Count returns the number of stored tracks.
func (s *store) Count(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { s.observe(metrics.OpTrackCount, start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.db.WithContext(ctx).Model(&Track{}).Count(&n).Error; err != nil {
		return 0, storeError(err, metrics.OpTrackCount)
	}
	if gauge, ok := s.metrics.(interface{ SetTrackCount(int64) }); ok {
		gauge.SetTrackCount(n)
	}
	return n, nil
}

// Reset removes all tracks and restarts id allocation at 1. It waits for
// in-flight operations and blocks new ones until it completes.
func (s *store) Reset(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe(metrics.OpCatalogReset, start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manager.Recreate(ctx); err != nil {
		return storeError(err, metrics.OpCatalogReset, "path", s.manager.Path())
	}
	s.log.Info("catalog reset", logger.String("path", s.manager.Path()))
	return nil
}
