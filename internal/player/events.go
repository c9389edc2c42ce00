// SPDX-License-Identifier: MIT

package player

// EventKind labels each transition trigger for logs and metrics.
type EventKind string

const (
	EventAppStart        EventKind = "app_start"
	EventSelectVideo     EventKind = "select_video"
	EventVisibility      EventKind = "visibility"
	EventCloseMini       EventKind = "close_mini"
	EventReopenMini      EventKind = "reopen_mini"
	EventMaximizeMini    EventKind = "maximize_mini"
	EventMinimizeMain    EventKind = "minimize_main"
	EventToggleLive      EventKind = "toggle_live"
	EventToggleSound     EventKind = "toggle_sound"
	EventInteraction     EventKind = "interaction"
	EventRestoreSnapshot EventKind = "restore_snapshot"
)

// Rejection reasons surfaced by transition guards.
const (
	reasonNonLiveMini  = "non_live_mini"
	reasonPrecondition = "precondition"
)
