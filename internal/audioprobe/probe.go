// Package audioprobe identifies the container format of audio held in memory.
// It is used to label fragments sent to the recognition provider and to log
// what was uploaded; it never rejects data it cannot identify.
package audioprobe

import (
	"bytes"
	"time"

	"github.com/go-audio/wav"
	"github.com/tphakala/flac"
)

// Format is a detected audio container.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatUnknown Format = "unknown"
)

const (
	contentTypeWAV     = "audio/wav"
	contentTypeFLAC    = "audio/flac"
	contentTypeUnknown = "application/octet-stream"
)

// Info describes audio data. Stream fields are zero when the header could not
// be decoded.
type Info struct {
	Format     Format
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// ContentType returns the MIME type to send with the data.
func (i Info) ContentType() string {
	switch i.Format {
	case FormatWAV:
		return contentTypeWAV
	case FormatFLAC:
		return contentTypeFLAC
	default:
		return contentTypeUnknown
	}
}

// Extension returns the file extension including the dot, or "" when unknown.
func (i Info) Extension() string {
	switch i.Format {
	case FormatWAV:
		return ".wav"
	case FormatFLAC:
		return ".flac"
	default:
		return ""
	}
}

// Filename returns base with the detected extension appended.
func (i Info) Filename(base string) string {
	return base + i.Extension()
}

// Probe inspects data and reports its format. Unrecognised data yields
// FormatUnknown.
func Probe(data []byte) Info {
	switch {
	case isWAV(data):
		return probeWAV(data)
	case isFLAC(data):
		return probeFLAC(data)
	default:
		return Info{Format: FormatUnknown}
	}
}

func isWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

func isFLAC(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[0:4], []byte("fLaC"))
}

func probeWAV(data []byte) Info {
	info := Info{Format: FormatWAV}

	decoder := wav.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return info
	}

	info.SampleRate = int(decoder.SampleRate)
	info.Channels = int(decoder.NumChans)
	info.BitDepth = int(decoder.BitDepth)
	if d, err := decoder.Duration(); err == nil {
		info.Duration = d
	}
	return info
}

func probeFLAC(data []byte) Info {
	info := Info{Format: FormatFLAC}

	decoder, err := flac.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return info
	}

	info.SampleRate = decoder.SampleRate
	info.Channels = decoder.NChannels
	info.BitDepth = decoder.BitsPerSample
	if decoder.SampleRate > 0 && decoder.TotalSamples > 0 {
		info.Duration = time.Duration(float64(decoder.TotalSamples) / float64(decoder.SampleRate) * float64(time.Second))
	}
	return info
}
