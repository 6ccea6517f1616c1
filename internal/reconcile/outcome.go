// Package reconcile turns a recognition result into a catalog outcome.
package reconcile

import (
	"github.com/adamokeah/shamzam/internal/catalog"
	"github.com/adamokeah/shamzam/internal/codec"
	"github.com/adamokeah/shamzam/internal/recognition"
)

// Kind is the final state of a reconciliation.
type Kind int

const (
	// Unrecognized means the provider did not identify the fragment.
	Unrecognized Kind = iota + 1
	// RecognizedAndCataloged means the identified track is in the catalog.
	RecognizedAndCataloged
	// RecognizedButAbsent means the provider identified a track the catalog
	// does not hold.
	RecognizedButAbsent
)

// String returns the metric and event label for k.
func (k Kind) String() string {
	switch k {
	case Unrecognized:
		return "unrecognized"
	case RecognizedAndCataloged:
		return "cataloged"
	case RecognizedButAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// OutcomeFailed labels reconciliations that ended in an error.
const OutcomeFailed = "failed"

// Outcome is the result of a successful reconciliation. A failed one is
// reported as an error instead.
type Outcome struct {
	Kind Kind

	// Recognized is what the provider returned; nil for Unrecognized.
	Recognized *recognition.Match

	// Track and Payload are set for RecognizedAndCataloged. Payload is the
	// stored encoded text, never decoded here.
	Track   *catalog.TrackInfo
	Payload codec.EncodedText
}
