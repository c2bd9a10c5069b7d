package store_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"noticiero/internal/services"
	"noticiero/internal/store"
	"noticiero/internal/testsupport"
)

func TestCreateAndGetNoticiero(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	n := &store.Noticiero{Title: "Noticiero IA - 13/10/2025, 10:00:00", Guion: "CARLOS: Hola"}
	if err := st.CreateNoticiero(ctx, n); err != nil {
		t.Fatalf("CreateNoticiero: %v", err)
	}
	if n.ID == "" || n.State != store.StatePending || n.PublicationDate.IsZero() {
		t.Fatalf("defaults not applied: %+v", n)
	}

	fetched, err := st.GetNoticiero(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetNoticiero: %v", err)
	}
	if fetched.Title != n.Title || fetched.Guion != n.Guion || fetched.State != store.StatePending {
		t.Fatalf("unexpected noticiero %+v", fetched)
	}
	if !fetched.PublicationDate.Equal(n.PublicationDate) {
		t.Fatalf("publication date mismatch: %v vs %v", fetched.PublicationDate, n.PublicationDate)
	}

	if _, err := st.GetNoticiero(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionOnlyFromPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	n := testsupport.NewNoticiero(t, st, "uno", store.StatePending)
	published, err := st.TransitionNoticiero(ctx, n.ID, store.StatePending, store.StatePublished)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.State != store.StatePublished {
		t.Fatalf("expected PUBLISHED, got %s", published.State)
	}

	current, err := st.TransitionNoticiero(ctx, n.ID, store.StatePending, store.StateRejected)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if current == nil || current.State != store.StatePublished {
		t.Fatalf("state should be unchanged, got %+v", current)
	}

	if _, err := st.TransitionNoticiero(ctx, "missing", store.StatePending, store.StatePublished); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentPublishSucceedsOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	n := testsupport.NewNoticiero(t, st, "carrera", store.StatePending)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.TransitionNoticiero(ctx, n.ID, store.StatePending, store.StatePublished); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if successes != 1 {
		t.Fatalf("expected exactly one successful publish, got %d", successes)
	}
}

func TestListAndLatestPublished(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := st.LatestPublished(ctx); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	base := time.Date(2025, 10, 13, 10, 0, 0, 0, time.UTC)
	for i, state := range []store.State{store.StatePublished, store.StatePublished, store.StatePending, store.StateRejected} {
		n := &store.Noticiero{Title: string(state), Guion: "g", State: state, PublicationDate: base.Add(time.Duration(i) * time.Hour)}
		if err := st.CreateNoticiero(ctx, n); err != nil {
			t.Fatalf("CreateNoticiero: %v", err)
		}
	}

	all, err := st.ListNoticieros(ctx, store.ListFilter{})
	if err != nil {
		t.Fatalf("ListNoticieros: %v", err)
	}
	if len(all) != 4 || all[0].State != store.StateRejected {
		t.Fatalf("expected newest first, got %d items starting with %s", len(all), all[0].State)
	}

	published, err := st.ListNoticieros(ctx, store.ListFilter{State: store.StatePublished})
	if err != nil {
		t.Fatalf("ListNoticieros(published): %v", err)
	}
	if len(published) != 2 {
		t.Fatalf("expected 2 published, got %d", len(published))
	}

	latest, err := st.LatestPublished(ctx)
	if err != nil {
		t.Fatalf("LatestPublished: %v", err)
	}
	if !latest.PublicationDate.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected latest %v", latest.PublicationDate)
	}

	counts, err := st.CountByState(ctx)
	if err != nil {
		t.Fatalf("CountByState: %v", err)
	}
	if counts[store.StatePublished] != 2 || counts[store.StatePending] != 1 || counts[store.StateRejected] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestDeleteNoticiero(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	n := testsupport.NewNoticiero(t, st, "borrar", store.StatePublished)

	deleted, err := st.DeleteNoticiero(ctx, n.ID)
	if err != nil {
		t.Fatalf("DeleteNoticiero: %v", err)
	}
	if deleted.State != store.StatePublished {
		t.Fatalf("expected deleted row to be returned")
	}
	if _, err := st.DeleteNoticiero(ctx, n.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFeedSources(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := st.AddFeedSource(ctx, "El Diario", "https://eldiario.example/rss")
	if err != nil {
		t.Fatalf("AddFeedSource: %v", err)
	}
	if !first.Active {
		t.Fatal("new feeds should be active")
	}
	if _, err := st.AddFeedSource(ctx, "Duplicado", "https://eldiario.example/rss"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate URL to fail validation, got %v", err)
	}
	if _, err := st.AddFeedSource(ctx, "Malo", "ftp://x"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected invalid URL to fail validation, got %v", err)
	}
	second, err := st.AddFeedSource(ctx, "Otro", "http://otro.example/feed")
	if err != nil {
		t.Fatalf("AddFeedSource second: %v", err)
	}

	if _, err := st.SetFeedActive(ctx, second.ID, false); err != nil {
		t.Fatalf("SetFeedActive: %v", err)
	}
	active, err := st.ListFeedSources(ctx, true)
	if err != nil {
		t.Fatalf("ListFeedSources: %v", err)
	}
	if len(active) != 1 || active[0].ID != first.ID {
		t.Fatalf("unexpected active feeds %+v", active)
	}
	all, err := st.ListFeedSources(ctx, false)
	if err != nil {
		t.Fatalf("ListFeedSources all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 feeds, got %d", len(all))
	}

	if err := st.DeleteFeedSource(ctx, first.ID); err != nil {
		t.Fatalf("DeleteFeedSource: %v", err)
	}
	if err := st.DeleteFeedSource(ctx, first.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.SetFeedActive(ctx, "missing", true); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingsSeededAndUpdated(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBroadcast("Canal 9", "Carlos", "Lucia", "banco"))
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	settings, err := st.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.ChannelName != "Canal 9" || settings.MalePresenter != "Carlos" || len(settings.CensoredWords) != 1 {
		t.Fatalf("unexpected seeded settings %+v", settings)
	}
	if normalized := settings.Normalized(); normalized.MalePresenter != "CARLOS" || normalized.FemalePresenter != "LUCIA" {
		t.Fatalf("presenters not upper-cased: %+v", normalized)
	}

	updated, err := st.UpdateSettings(ctx, store.BroadcastConfig{
		ChannelName:     "Radio Sur",
		MalePresenter:   " Pedro ",
		FemalePresenter: "Ana",
		CensoredWords:   []string{"guerra", " ", "crisis"},
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if updated.ChannelName != "Radio Sur" || updated.MalePresenter != "Pedro" || len(updated.CensoredWords) != 2 {
		t.Fatalf("unexpected updated settings %+v", updated)
	}

	if _, err := st.UpdateSettings(ctx, store.BroadcastConfig{ChannelName: "x"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	// Reopening must not overwrite edited settings with the seed.
	st.Close()
	reopened := testsupport.MustOpenStore(t, cfg)
	again, err := reopened.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings after reopen: %v", err)
	}
	if again.ChannelName != "Radio Sur" {
		t.Fatalf("seed overwrote settings: %+v", again)
	}
}

func TestParseState(t *testing.T) {
	if s, ok := store.ParseState(" published "); !ok || s != store.StatePublished {
		t.Fatalf("unexpected parse %q %v", s, ok)
	}
	if _, ok := store.ParseState("archived"); ok {
		t.Fatal("unknown state accepted")
	}
	if store.StatePending.Terminal() || !store.StateRejected.Terminal() {
		t.Fatal("terminal states misreported")
	}
}

func TestOpenRejectsUnknownSchemaVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	st.Close()

	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen at current version: %v", err)
	}
	reopened.Close()

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump user_version: %v", err)
	}
	db.Close()

	if _, err := store.Open(cfg); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
