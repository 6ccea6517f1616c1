// Package catalog persists tracks and answers lookups by id or by the
// (title, artist) key.
package catalog

import (
	"github.com/adamokeah/shamzam/internal/codec"
)

// MaxFieldLength bounds title and artist, in characters.
const MaxFieldLength = 255

// Track is a stored catalog entry. Payload is held in its encoded form and
// only decoded by callers that need the bytes.
type Track struct {
	ID      uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	Title   string            `gorm:"size:255;not null;index:idx_tracks_key,priority:1" json:"title"`
	Artist  string            `gorm:"size:255;not null;index:idx_tracks_key,priority:2" json:"artist"`
	Payload codec.EncodedText `gorm:"not null" json:"payload"`
}

// TableName returns the database table name.
func (Track) TableName() string {
	return "tracks"
}

// Info returns the payload-free projection of t.
func (t *Track) Info() TrackInfo {
	return TrackInfo{ID: t.ID, Title: t.Title, Artist: t.Artist}
}

// TrackInfo is the listing projection of a track. It has no payload.
type TrackInfo struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}
