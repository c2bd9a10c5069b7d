package testsupport

import (
	"context"
	"testing"
	"time"

	"noticiero/internal/config"
	"noticiero/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewNoticiero inserts a noticiero in the given state for tests.
func NewNoticiero(t testing.TB, st *store.Store, title string, state store.State) *store.Noticiero {
	t.Helper()

	n := &store.Noticiero{
		Title:           title,
		Guion:           "CARLOS: Buenas noches.\nLUCIA: Comenzamos.",
		State:           state,
		PublicationDate: time.Now().UTC(),
	}
	if err := st.CreateNoticiero(context.Background(), n); err != nil {
		t.Fatalf("store.CreateNoticiero: %v", err)
	}
	return n
}
