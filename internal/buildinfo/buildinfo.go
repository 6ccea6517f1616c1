// Package buildinfo carries build-time metadata injected through -ldflags.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not set at build time.
const UnknownValue = "unknown"

// Set with -ldflags "-X github.com/adamokeah/shamzam/internal/buildinfo.version=..."
var (
	version   string
	buildDate string
)

// Info is build metadata kept apart from user configuration.
type Info struct {
	version   string
	buildDate string
}

// New returns Info for explicit values, mainly for tests.
func New(version, buildDate string) *Info {
	return &Info{version: version, buildDate: buildDate}
}

// Current returns the metadata linked into this binary.
func Current() *Info {
	return New(version, buildDate)
}

// Version returns the release version or UnknownValue.
func (i *Info) Version() string {
	if i == nil || i.version == "" {
		return UnknownValue
	}
	return i.version
}

// BuildDate returns the build timestamp or UnknownValue.
func (i *Info) BuildDate() string {
	if i == nil || i.buildDate == "" {
		return UnknownValue
	}
	return i.buildDate
}

// UserAgent is the User-Agent sent to the recognition provider.
func (i *Info) UserAgent() string {
	return "shamzam/" + i.Version()
}

func (i *Info) String() string {
	return fmt.Sprintf("shamzam %s (built %s)", i.Version(), i.BuildDate())
}
