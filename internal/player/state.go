// SPDX-License-Identifier: MIT

// Package player owns per-viewer player session state: which video is
// active, whether it is full-size or minimized, and how it reacts to
// visibility reports and explicit viewer actions.
package player

import (
	"encoding/json"
	"fmt"

	"github.com/lumeotv/portald/internal/catalog"
)

// Phase is the derived, tagged view of a player session.
type Phase string

const (
	// PhaseIdle indicates no main video and no active live stream.
	PhaseIdle Phase = "idle"

	// PhaseMainPlaying indicates a full-size main video.
	PhaseMainPlaying Phase = "main_playing"

	// PhaseMinimized indicates the live stream runs in the mini player only.
	PhaseMinimized Phase = "minimized"

	// PhasePaused indicates the live stream is held but not rendered.
	PhasePaused Phase = "paused"

	// PhaseClosedWithRecall indicates nothing renders but the last closed
	// video can be recalled.
	PhaseClosedWithRecall Phase = "closed_with_recall"
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	return string(p)
}

// IsValid checks whether the phase is a known value.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseIdle, PhaseMainPlaying, PhaseMinimized, PhasePaused, PhaseClosedWithRecall:
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	phase := Phase(str)
	if !phase.IsValid() {
		return fmt.Errorf("invalid player phase: %q", str)
	}
	*p = phase
	return nil
}

// State is the player session's owned data. It is mutated only by the
// controller's transition path; illegal combinations (a visible mini player
// holding a non-live video) are refused there.
type State struct {
	MainVideo              *catalog.Video `json:"mainVideo"`
	ActiveLiveStream       *catalog.Video `json:"activeLiveStream"`
	MiniPlayerVideo        *catalog.Video `json:"miniPlayerVideo"`
	MiniPlayerVisible      bool           `json:"miniPlayerVisible"`
	MiniPlayerPausedByUser bool           `json:"miniPlayerPausedByUser"`
	LastClosedVideo        *catalog.Video `json:"lastClosedVideo"`
	ScrollTriggered        bool           `json:"scrollTriggered"`
	SoundEnabled           bool           `json:"soundEnabled"`
	Autoplay               bool           `json:"autoplay"`
	HasInteracted          bool           `json:"hasInteracted"`
}

// Phase derives the tagged state. Order matters: a main video always means
// MainPlaying, even while the mini player shows the demoted live stream.
func (s *State) Phase() Phase {
	switch {
	case s.MainVideo != nil:
		return PhaseMainPlaying
	case s.ActiveLiveStream != nil && s.MiniPlayerVisible:
		return PhaseMinimized
	case s.ActiveLiveStream != nil && s.MiniPlayerPausedByUser:
		return PhasePaused
	case s.LastClosedVideo != nil:
		return PhaseClosedWithRecall
	default:
		return PhaseIdle
	}
}
