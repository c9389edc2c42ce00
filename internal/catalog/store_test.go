// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testVideo(id string, live bool) Video {
	return Video{
		ID:            id,
		Title:         "Video " + id,
		Category:      "news",
		DurationLabel: "12:34",
		IsLive:        live,
		StreamURL:     "https://cdn.example/" + id + ".m3u8",
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestStoreUpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := testVideo("v-1", false)
	if err := store.Upsert(ctx, want); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := store.Get(ctx, "v-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != want.Title || got.IsLive != want.IsLive || got.StreamURL != want.StreamURL {
		t.Errorf("got %+v, want %+v", got, want)
	}

	// Upsert with same id updates in place.
	want.Title = "Updated"
	if err := store.Upsert(ctx, want); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	got, err = store.Get(ctx, "v-1")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.Title != "Updated" {
		t.Errorf("title = %q, want Updated", got.Title)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreLiveOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := testVideo("live-1", true)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := testVideo("live-2", true)
	onDemand := testVideo("vod-1", false)

	for _, v := range []Video{newer, older, onDemand} {
		if err := store.Upsert(ctx, v); err != nil {
			t.Fatalf("Upsert %s: %v", v.ID, err)
		}
	}

	live, err := store.Live(ctx)
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("live count = %d, want 2", len(live))
	}
	if live[0].ID != "live-1" {
		t.Errorf("default live = %s, want the oldest entry live-1", live[0].ID)
	}
}

func TestStoreListByCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testVideo("v-1", false)
	b := testVideo("v-2", false)
	b.Category = "sports"
	for _, v := range []Video{a, b} {
		if err := store.Upsert(ctx, v); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	sports, err := store.List(ctx, "sports")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sports) != 1 || sports[0].ID != "v-2" {
		t.Fatalf("sports = %+v, want only v-2", sports)
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all count = %d, want 2", len(all))
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, testVideo("v-1", false)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Delete(ctx, "v-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "v-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}

	// Deleting an absent row is not an error.
	if err := store.Delete(ctx, "v-1"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}
