// Package testutil provides shared test utilities for the shamzam packages.
package testutil

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adamokeah/shamzam/internal/catalog"
	"github.com/adamokeah/shamzam/internal/codec"
	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/recognition"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout is the standard timeout for most async test operations.
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is for operations expected to complete quickly.
	ShortTestTimeout = 1 * time.Second
)

// WaitForError waits for a value on ch or fails after timeout.
func WaitForError(t *testing.T, ch <-chan error, timeout time.Duration, msg string) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		require.Fail(t, msg)
		return nil
	}
}

// NewCatalog opens an initialized SQLite catalog in a temp dir and closes it
// when the test ends.
func NewCatalog(t *testing.T) (catalog.Store, catalog.Manager) {
	t.Helper()

	mgr, err := catalog.NewSQLiteManager(catalog.Config{
		SQLitePath: filepath.Join(t.TempDir(), "catalog.db"),
	}, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.NoError(t, mgr.Initialize(context.Background()))

	return catalog.NewStore(mgr), mgr
}

// StubRecognizer returns a fixed result or error and counts calls.
type StubRecognizer struct {
	Result recognition.Result
	Err    error

	calls atomic.Int32
}

// Recognize implements recognition.Recognizer.
func (s *StubRecognizer) Recognize(context.Context, codec.RawBytes) (recognition.Result, error) {
	s.calls.Add(1)
	return s.Result, s.Err
}

// Calls returns how many times Recognize was called.
func (s *StubRecognizer) Calls() int {
	return int(s.calls.Load())
}
