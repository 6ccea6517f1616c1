// Package recognition identifies audio fragments through an external
// recognition provider.
package recognition

import (
	"context"

	"github.com/adamokeah/shamzam/internal/codec"
)

// Match is a provider identification.
type Match struct {
	Artist string
	Title  string
	// Metadata holds every other field the provider returned for the match.
	Metadata map[string]any
}

// Result is the outcome of one recognition call. Match is nil when the
// provider did not identify the fragment.
type Result struct {
	Match *Match
}

// NoMatch is the result for an unidentified fragment.
func NoMatch() Result { return Result{} }

// Matched returns a result carrying a match.
func Matched(artist, title string, metadata map[string]any) Result {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Result{Match: &Match{Artist: artist, Title: title, Metadata: metadata}}
}

// IsMatch reports whether the provider identified the fragment.
func (r Result) IsMatch() bool { return r.Match != nil }

// Recognizer identifies a fragment. Implementations return errors in the
// Validation, ProviderAuth or ProviderUnavailable categories.
type Recognizer interface {
	Recognize(ctx context.Context, fragment codec.RawBytes) (Result, error)
}
