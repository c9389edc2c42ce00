// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/lumeotv/portald/internal/log"
)

type seedFile struct {
	Videos []Video `json:"videos"`
}

// ImportSeed loads the JSON seed file and upserts every entry. Returns the
// number of imported videos.
func (s *Service) ImportSeed(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("decode seed: %w", err)
	}

	for _, v := range seed.Videos {
		if v.ID == "" {
			s.logger.Warn().Str("title", v.Title).Msg("seed entry without id skipped")
			continue
		}
		if err := s.store.Upsert(ctx, v); err != nil {
			return 0, fmt.Errorf("upsert seed entry %q: %w", v.ID, err)
		}
	}
	s.cache.Clear()

	s.logger.Info().Int("videos", len(seed.Videos)).Str(log.FieldPath, path).Msg("seed imported")
	return len(seed.Videos), nil
}

// ExportSeed writes the full catalog to path atomically, so a concurrent
// watcher never observes a half-written file.
func (s *Service) ExportSeed(ctx context.Context, path string) error {
	videos, err := s.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}

	raw, err := json.MarshalIndent(seedFile{Videos: videos}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode seed: %w", err)
	}

	if err := renameio.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write seed: %w", err)
	}
	return nil
}

// SeedWatcher re-imports the seed file whenever it changes on disk.
type SeedWatcher struct {
	svc     *Service
	path    string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
}

// NewSeedWatcher watches the seed file's directory (editors and atomic
// writers replace the file rather than write in place).
func NewSeedWatcher(svc *Service, path string) (*SeedWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch seed directory: %w", err)
	}
	return &SeedWatcher{
		svc:     svc,
		path:    path,
		watcher: watcher,
		logger:  log.WithComponent("seed-watcher"),
	}, nil
}

// Run processes file events until ctx is cancelled. Bursty events are
// debounced so one editor save triggers one import.
func (w *SeedWatcher) Run(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()

	var debounce *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, okEv := <-w.watcher.Events:
			if !okEv {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case <-trigger:
			if _, err := w.svc.ImportSeed(ctx, w.path); err != nil {
				w.logger.Warn().Err(err).Msg("seed reload failed")
			}
		case err, okErr := <-w.watcher.Errors:
			if !okErr {
				return
			}
			w.logger.Warn().Err(err).Msg("seed watcher error")
		}
	}
}
