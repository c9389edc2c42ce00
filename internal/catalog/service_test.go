// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(newTestStore(t), NewMemoryCache(0), time.Minute)
}

func TestServiceReadThrough(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	want := testVideo("v-1", false)
	if err := svc.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// First read populates the cache, second is served from it.
	first, err := svc.VideoByID(ctx, "v-1")
	if err != nil {
		t.Fatalf("VideoByID: %v", err)
	}
	second, err := svc.VideoByID(ctx, "v-1")
	if err != nil {
		t.Fatalf("VideoByID cached: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached read differs (-first +second):\n%s", diff)
	}
	if svc.CacheStats().Hits == 0 {
		t.Error("second read did not hit the cache")
	}

	// After a flush the stored video is still returned.
	svc.cache.Clear()
	third, err := svc.VideoByID(ctx, "v-1")
	if err != nil {
		t.Fatalf("VideoByID after flush: %v", err)
	}
	if third.ID != want.ID || third.Title != want.Title {
		t.Errorf("after flush got %+v, want %+v", third, want)
	}
}

func TestServiceSaveInvalidatesCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	v := testVideo("v-1", false)
	if err := svc.Save(ctx, v); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := svc.VideoByID(ctx, "v-1"); err != nil {
		t.Fatalf("VideoByID: %v", err)
	}

	v.Title = "Updated"
	if err := svc.Save(ctx, v); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := svc.VideoByID(ctx, "v-1")
	if err != nil {
		t.Fatalf("VideoByID after update: %v", err)
	}
	if got.Title != "Updated" {
		t.Errorf("title = %q, stale cache entry survived the update", got.Title)
	}
}

func TestServiceDefaultLive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.DefaultLive(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound on empty catalog", err)
	}

	live := testVideo("live-1", true)
	if err := svc.Save(ctx, live); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := svc.DefaultLive(ctx)
	if err != nil {
		t.Fatalf("DefaultLive: %v", err)
	}
	if got.ID != "live-1" || !got.IsLive {
		t.Errorf("default live = %+v, want live-1", got)
	}
}

func TestServiceListCached(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := svc.Save(ctx, testVideo(id, false)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	first, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	second, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List cached: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached list differs:\n%s", diff)
	}
	if len(first) != 3 {
		t.Fatalf("list count = %d, want 3", len(first))
	}
}
