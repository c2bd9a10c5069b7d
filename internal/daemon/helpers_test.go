package daemon

import (
	"context"
	"testing"
	"time"

	"noticiero/internal/config"
	"noticiero/internal/feeds"
	"noticiero/internal/logging"
	"noticiero/internal/pipeline"
	"noticiero/internal/storage/storagetest"
	"noticiero/internal/store"
	"noticiero/internal/testsupport"
)

type stubCollector struct{ items []feeds.NewsItem }

func (s stubCollector) Collect(context.Context, []feeds.Source) []feeds.NewsItem { return s.items }

type stubDrafter struct{ st *store.Store }

func (s stubDrafter) GenerateDraft(ctx context.Context, _ []feeds.NewsItem, cfg store.BroadcastConfig) (*store.Noticiero, error) {
	n := &store.Noticiero{Title: cfg.ChannelName, Guion: cfg.MalePresenter + ": Hola."}
	if err := s.st.CreateNoticiero(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

type stubSynth struct{}

func (stubSynth) Synthesize(context.Context, string, store.BroadcastConfig) ([]byte, error) {
	return []byte("RIFFwav"), nil
}

type stubTranscoder struct{}

func (stubTranscoder) Transcode(context.Context, []byte) ([]byte, error) {
	return []byte("ID3-mp3-bytes"), nil
}

type testEnv struct {
	cfg    *config.Config
	st     *store.Store
	orch   *pipeline.Orchestrator
	daemon *Daemon
	s3     *storagetest.FakeS3
}

func newTestEnv(t *testing.T, opts ...testsupport.ConfigOption) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	gateway, fake := storagetest.NewGateway(t)
	now := time.Now()
	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Store: st,
		Collector: stubCollector{items: []feeds.NewsItem{
			{Title: "Lluvias", Content: "fuertes", Source: "Uno", PublicationDate: now.Add(-time.Hour)},
		}},
		Drafter:         stubDrafter{st: st},
		Synthesizer:     stubSynth{},
		Transcoder:      stubTranscoder{},
		Audio:           gateway,
		FreshnessWindow: 24 * time.Hour,
		SignedURLTTL:    time.Hour,
	}, 4, logging.NewNop())
	d, err := New(cfg, st, orch, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return &testEnv{cfg: cfg, st: st, orch: orch, daemon: d, s3: fake}
}
