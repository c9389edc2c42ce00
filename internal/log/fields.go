// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldViewerID  = "viewer_id"
	FieldSessionID = "session_id"
	FieldUserID    = "user_id"
	FieldVideoID   = "video_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldEpoch     = "epoch"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldRole     = "role"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
