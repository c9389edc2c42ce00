// SPDX-License-Identifier: MIT

// Package catalog owns the video reference data served to viewers: a SQLite
// store fronted by a TTL cache, seeded from a watched JSON file.
package catalog

import (
	"errors"
	"time"
)

// Video is immutable reference data. Live entries are special: at most one
// may be the active stream of a viewer's player session.
type Video struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	DurationLabel string    `json:"durationLabel"`
	IsLive        bool      `json:"isLive"`
	ThumbnailURL  string    `json:"thumbnailUrl"`
	StreamURL     string    `json:"streamUrl"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ErrNotFound is returned when a video id has no row.
var ErrNotFound = errors.New("catalog: video not found")
