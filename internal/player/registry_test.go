// SPDX-License-Identifier: MIT

package player

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/lumeotv/portald/internal/catalog"
	"github.com/lumeotv/portald/internal/playerstore"
)

func newTestCatalog(t *testing.T, videos ...catalog.Video) *catalog.Service {
	t.Helper()
	store, err := catalog.NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("catalog store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc := catalog.NewService(store, catalog.NewMemoryCache(0), time.Minute)
	for _, v := range videos {
		if err := svc.Save(context.Background(), v); err != nil {
			t.Fatalf("seed video: %v", err)
		}
	}
	return svc
}

func TestRegistryCreatesSessionWithDefaultLive(t *testing.T) {
	reg := NewRegistry(RegistryOptions{
		Catalog:   newTestCatalog(t, liveVideo("live-1"), vodVideo("vod-1")),
		Threshold: 0.3,
	})
	defer reg.Close()

	c := reg.Get(context.Background(), "viewer-1")
	got := c.Snapshot()
	if got.MainVideo == nil || got.MainVideo.ID != "live-1" {
		t.Fatalf("state = %+v, want default live live-1", got)
	}

	if again := reg.Get(context.Background(), "viewer-1"); again != c {
		t.Fatal("second Get returned a different controller")
	}
	if reg.Size() != 1 {
		t.Fatalf("size = %d, want 1", reg.Size())
	}
}

func TestRegistryEmptyCatalogStartsIdle(t *testing.T) {
	reg := NewRegistry(RegistryOptions{Catalog: newTestCatalog(t), Threshold: 0.3})
	defer reg.Close()

	c := reg.Get(context.Background(), "viewer-1")
	snap := c.Snapshot()
	if got := snap.Phase(); got != PhaseIdle {
		t.Fatalf("phase = %s, want idle", got)
	}
}

func TestRegistryTeardownClosesSubscriptions(t *testing.T) {
	// The catalog fixture's database closes in t.Cleanup, which runs after
	// this deferred check, so its sql.DB opener goroutine is still alive here.
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	reg := NewRegistry(RegistryOptions{Catalog: newTestCatalog(t), Threshold: 0.3})
	c := reg.Get(context.Background(), "viewer-1")
	sub := c.Subscribe()

	reg.Teardown("viewer-1")

	select {
	case _, open := <-sub.C:
		if open {
			t.Fatal("subscription channel still delivering after teardown")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription channel not closed on teardown")
	}

	if reg.Size() != 0 {
		t.Fatalf("size = %d, want 0", reg.Size())
	}
	reg.Teardown("viewer-1") // idempotent
	reg.Close()
}

func TestRegistrySnapshotResume(t *testing.T) {
	snaps, err := playerstore.Open("")
	if err != nil {
		t.Fatalf("playerstore: %v", err)
	}
	defer func() { _ = snaps.Close() }()

	cat := newTestCatalog(t, liveVideo("live-1"))
	reg := NewRegistry(RegistryOptions{Catalog: cat, Threshold: 0.3, Snapshots: snaps})

	c := reg.Get(context.Background(), "viewer-1")
	c.SelectVideo(context.Background(), vodVideo("vod-9"))
	reg.Teardown("viewer-1")

	// A reconnecting viewer resumes the persisted state, not the default.
	resumed := NewRegistry(RegistryOptions{Catalog: cat, Threshold: 0.3, Snapshots: snaps})
	defer resumed.Close()
	got := resumed.Get(context.Background(), "viewer-1").Snapshot()
	if got.MainVideo == nil || got.MainVideo.ID != "vod-9" {
		t.Fatalf("state = %+v, want resumed vod-9", got)
	}
}
