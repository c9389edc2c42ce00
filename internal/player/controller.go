// SPDX-License-Identifier: MIT

package player

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lumeotv/portald/internal/backend"
	"github.com/lumeotv/portald/internal/catalog"
	"github.com/lumeotv/portald/internal/log"
	"github.com/lumeotv/portald/internal/metrics"
	"github.com/lumeotv/portald/internal/playerstore"
)

// UserSource reports the authenticated user, nil for guests. The session
// manager satisfies it; the controller never blocks on auth.
type UserSource interface {
	AuthenticatedUser() *backend.User
}

// AnalyticsSink receives best-effort watch notifications.
type AnalyticsSink interface {
	WatchStarted(ctx context.Context, userID, videoID string) error
}

// Subscription is an explicit handle on the controller's state feed. Close
// must be called on teardown; it is idempotent.
type Subscription struct {
	C      <-chan State
	cancel func()
	once   sync.Once
}

// Close unsubscribes and releases the channel.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Controller drives one viewer's player session. All mutation runs through
// transition, which serializes under the mutex and keeps the invariants: at
// most one active live stream, mini player live-only.
type Controller struct {
	viewerID  string
	threshold float64
	users     UserSource
	sink      AnalyticsSink
	snapshots *playerstore.Store
	logger    zerolog.Logger

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
}

// Options configures a controller.
type Options struct {
	ViewerID string
	// Threshold is the visibility ratio below which the main player counts
	// as out of view.
	Threshold float64
	Users     UserSource
	Sink      AnalyticsSink
	// Snapshots persists state across reconnects. May be nil.
	Snapshots *playerstore.Store
	// DefaultLive starts the session playing the default live stream.
	DefaultLive *catalog.Video
}

// NewController creates a controller. With a default live stream the session
// starts in MainPlaying with autoplay; otherwise Idle.
func NewController(opts Options) *Controller {
	c := &Controller{
		viewerID:  opts.ViewerID,
		threshold: opts.Threshold,
		users:     opts.Users,
		sink:      opts.Sink,
		snapshots: opts.Snapshots,
		logger:    log.WithComponent("player").With().Str(log.FieldViewerID, opts.ViewerID).Logger(),
		subs:      make(map[int]chan State),
	}

	if c.snapshots != nil {
		var restored State
		if err := c.snapshots.Load(opts.ViewerID, &restored); err == nil {
			c.state = restored
			metrics.IncPlayerTransition(string(EventRestoreSnapshot), string(PhaseIdle), string(restored.Phase()))
			if restored.ActiveLiveStream != nil {
				metrics.AddActiveLiveStreams(1)
			}
			return c
		}
	}

	if opts.DefaultLive != nil && opts.DefaultLive.IsLive {
		c.state.MainVideo = opts.DefaultLive
		c.state.ActiveLiveStream = opts.DefaultLive
		c.state.Autoplay = true
		metrics.IncPlayerTransition(string(EventAppStart), string(PhaseIdle), string(PhaseMainPlaying))
		metrics.AddActiveLiveStreams(1)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a handle on the state feed. Updates that arrive faster
// than the subscriber drains are dropped, never blocked on.
func (c *Controller) Subscribe() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan State, 8)
	c.subs[id] = ch

	return &Subscription{
		C: ch,
		cancel: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, found := c.subs[id]; found {
				delete(c.subs, id)
				close(sub)
			}
		},
	}
}

// transition is the single mutation path. fn returns a rejection reason, or
// empty to commit. Committed transitions fan out to subscribers and persist
// a snapshot.
func (c *Controller) transition(event EventKind, fn func(s *State) string) bool {
	c.mu.Lock()
	from := c.state.Phase()
	liveBefore := c.state.ActiveLiveStream != nil

	if reason := fn(&c.state); reason != "" {
		c.mu.Unlock()
		metrics.IncPlayerRejection(reason)
		c.logger.Warn().
			Str(log.FieldEvent, string(event)).
			Str(log.FieldOldState, string(from)).
			Str("reason", reason).
			Msg("player transition refused")
		return false
	}

	to := c.state.Phase()
	liveAfter := c.state.ActiveLiveStream != nil
	snapshot := c.state
	subs := make([]chan State, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	metrics.IncPlayerTransition(string(event), string(from), string(to))
	if liveBefore != liveAfter {
		if liveAfter {
			metrics.AddActiveLiveStreams(1)
		} else {
			metrics.AddActiveLiveStreams(-1)
		}
	}
	c.logger.Debug().
		Str(log.FieldEvent, string(event)).
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Msg("player transition")

	for _, sub := range subs {
		select {
		case sub <- snapshot:
		default:
		}
	}
	c.persist(snapshot)
	return true
}

func (c *Controller) persist(s State) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.Save(c.viewerID, s); err != nil {
		c.logger.Warn().Err(err).Msg("player snapshot save failed")
	}
}

// showMini is the guard every mini-player path goes through: the mini player
// renders live content only.
func showMini(s *State, v *catalog.Video) string {
	if v == nil || !v.IsLive {
		return reasonNonLiveMini
	}
	s.MiniPlayerVideo = v
	s.MiniPlayerVisible = true
	return ""
}

func hideMini(s *State) {
	s.MiniPlayerVisible = false
	s.MiniPlayerVideo = nil
}

// SelectVideo makes v the main video. A live selection takes over the single
// active live slot; an on-demand selection demotes a running live stream to
// the mini player.
func (c *Controller) SelectVideo(ctx context.Context, v catalog.Video) bool {
	committed := c.transition(EventSelectVideo, func(s *State) string {
		if v.IsLive {
			s.MainVideo = &v
			s.ActiveLiveStream = &v
			hideMini(s)
			s.MiniPlayerPausedByUser = false
			s.ScrollTriggered = false
			s.Autoplay = true
			s.SoundEnabled = s.HasInteracted
			return ""
		}

		if s.ActiveLiveStream != nil {
			if reason := showMini(s, s.ActiveLiveStream); reason != "" {
				return reason
			}
		}
		s.MainVideo = &v
		s.Autoplay = true
		return ""
	})

	if committed && !v.IsLive {
		c.notifyWatchStarted(ctx, v.ID)
	}
	return committed
}

// notifyWatchStarted fires the best-effort analytics side channel. Guests
// are skipped; failures are logged, never surfaced.
func (c *Controller) notifyWatchStarted(ctx context.Context, videoID string) {
	if c.sink == nil || c.users == nil {
		return
	}
	user := c.users.AuthenticatedUser()
	if user == nil {
		metrics.IncWatchStarted("skipped")
		return
	}
	if err := c.sink.WatchStarted(ctx, user.ID, videoID); err != nil {
		metrics.IncWatchStarted("failure")
		c.logger.Warn().Err(err).
			Str(log.FieldVideoID, videoID).
			Msg("watch-started notification failed")
		return
	}
	metrics.IncWatchStarted("success")
}

// ObserveVisibility handles a viewport report for the main player element.
// ratio is the visible fraction; crossing below the threshold while a live
// stream is active scroll-triggers the mini player, muted unless the viewer
// has interacted. Reports are advisory: without them the session degrades to
// manual-only control.
func (c *Controller) ObserveVisibility(ratio float64) {
	intersecting := ratio >= c.threshold

	c.transition(EventVisibility, func(s *State) string {
		if !intersecting {
			if s.ActiveLiveStream == nil || s.MainVideo == nil {
				return reasonPrecondition
			}
			if reason := showMini(s, s.ActiveLiveStream); reason != "" {
				return reason
			}
			s.ScrollTriggered = true
			s.SoundEnabled = s.SoundEnabled && s.HasInteracted
			return ""
		}

		if !s.ScrollTriggered {
			return reasonPrecondition
		}
		s.ScrollTriggered = false
		hideMini(s)
		return ""
	})
}

// CloseMiniPlayer hides the mini player and parks its video for recall.
func (c *Controller) CloseMiniPlayer() bool {
	return c.transition(EventCloseMini, func(s *State) string {
		if !s.MiniPlayerVisible {
			return reasonPrecondition
		}
		s.LastClosedVideo = s.MiniPlayerVideo
		hideMini(s)
		s.ActiveLiveStream = nil
		s.MiniPlayerPausedByUser = true
		s.ScrollTriggered = false
		return ""
	})
}

// ReopenMiniPlayer restores the last closed video into the mini player.
func (c *Controller) ReopenMiniPlayer() bool {
	return c.transition(EventReopenMini, func(s *State) string {
		if s.LastClosedVideo == nil {
			return reasonPrecondition
		}
		if reason := showMini(s, s.LastClosedVideo); reason != "" {
			return reason
		}
		s.ActiveLiveStream = s.LastClosedVideo
		s.LastClosedVideo = nil
		s.MiniPlayerPausedByUser = false
		s.Autoplay = true
		return ""
	})
}

// MaximizeMiniPlayer promotes the mini player's live video back to main.
func (c *Controller) MaximizeMiniPlayer(ctx context.Context) bool {
	c.mu.Lock()
	target := c.state.MiniPlayerVideo
	visible := c.state.MiniPlayerVisible
	c.mu.Unlock()

	if !visible || target == nil || !target.IsLive {
		metrics.IncPlayerRejection(reasonPrecondition)
		c.logger.Warn().Str(log.FieldEvent, string(EventMaximizeMini)).Msg("player transition refused")
		return false
	}
	return c.SelectVideo(ctx, *target)
}

// MinimizeMainPlayer sends a live main video to the mini player.
func (c *Controller) MinimizeMainPlayer() bool {
	return c.transition(EventMinimizeMain, func(s *State) string {
		if s.MainVideo == nil || !s.MainVideo.IsLive {
			return reasonPrecondition
		}
		if reason := showMini(s, s.MainVideo); reason != "" {
			return reason
		}
		s.MainVideo = nil
		return ""
	})
}

// ToggleLiveStream pauses a playing live stream or resumes a paused one.
func (c *Controller) ToggleLiveStream() bool {
	return c.transition(EventToggleLive, func(s *State) string {
		if s.ActiveLiveStream == nil {
			return reasonPrecondition
		}
		if s.MiniPlayerPausedByUser {
			if reason := showMini(s, s.ActiveLiveStream); reason != "" {
				return reason
			}
			s.MiniPlayerPausedByUser = false
			s.Autoplay = true
			return ""
		}
		hideMini(s)
		s.MiniPlayerPausedByUser = true
		s.Autoplay = false
		return ""
	})
}

// ToggleSound flips the sound flag. Enabling sound also counts as the first
// viewer interaction.
func (c *Controller) ToggleSound() {
	c.transition(EventToggleSound, func(s *State) string {
		s.SoundEnabled = !s.SoundEnabled
		if s.SoundEnabled {
			s.HasInteracted = true
		}
		return ""
	})
}

// MarkInteracted records the first viewer interaction, which unlocks sound.
func (c *Controller) MarkInteracted() {
	c.mu.Lock()
	already := c.state.HasInteracted
	c.mu.Unlock()
	if already {
		return
	}
	c.transition(EventInteraction, func(s *State) string {
		s.HasInteracted = true
		s.SoundEnabled = true
		return ""
	})
}

// teardown closes all subscriptions and persists a final snapshot.
func (c *Controller) teardown() {
	c.mu.Lock()
	snapshot := c.state
	subs := c.subs
	c.subs = make(map[int]chan State)
	if c.state.ActiveLiveStream != nil {
		metrics.AddActiveLiveStreams(-1)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		close(sub)
	}
	c.persist(snapshot)
}
