package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"noticiero/internal/feeds"
	"noticiero/internal/logging"
	"noticiero/internal/services"
	"noticiero/internal/storage"
	"noticiero/internal/store"
)

const (
	audioKeyPrefix   = "audio/noticieros/"
	audioContentType = "audio/mpeg"
)

// Collector downloads the given feeds.
type Collector interface {
	Collect(ctx context.Context, sources []feeds.Source) []feeds.NewsItem
}

// Drafter writes and persists a PENDING noticiero.
type Drafter interface {
	GenerateDraft(ctx context.Context, items []feeds.NewsItem, cfg store.BroadcastConfig) (*store.Noticiero, error)
}

// Synthesizer renders a script as WAV.
type Synthesizer interface {
	Synthesize(ctx context.Context, script string, cfg store.BroadcastConfig) ([]byte, error)
}

// Transcoder converts WAV to MP3.
type Transcoder interface {
	Transcode(ctx context.Context, wav []byte) ([]byte, error)
}

// AudioStore is the object storage used for MP3 artifacts.
type AudioStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	UploadStream(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	OpenRange(ctx context.Context, key, byteRange string) (*storage.Object, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Metadata(ctx context.Context, key string) (storage.ObjectInfo, error)
	Exists(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string, maxKeys int) ([]storage.ObjectInfo, error)
	SignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	SignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PublicURL(key string) string
}

// Deps bundles the orchestrator collaborators.
type Deps struct {
	Store       *store.Store
	Collector   Collector
	Drafter     Drafter
	Synthesizer Synthesizer
	Transcoder  Transcoder
	Audio       AudioStore
	// FreshnessWindow bounds how old a news item may be.
	FreshnessWindow time.Duration
	// SignedURLTTL is the default lifetime of audio URLs.
	SignedURLTTL time.Duration
	Now          func() time.Time
}

// Orchestrator runs drafts and publishes.
type Orchestrator struct {
	deps   Deps
	runner *Runner
	logger *slog.Logger
}

// NewOrchestrator wires an orchestrator and its audio runner. The runner must
// be started before Publish can hand off audio work.
func NewOrchestrator(deps Deps, queueSize int, logger *slog.Logger) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.FreshnessWindow <= 0 {
		deps.FreshnessWindow = 24 * time.Hour
	}
	o := &Orchestrator{deps: deps, logger: logging.NewComponentLogger(logger, "orchestrator")}
	o.runner = NewRunner(o.RenderAudio, queueSize, logger)
	return o
}

// Runner exposes the background audio worker.
func (o *Orchestrator) Runner() *Runner { return o.runner }

// AudioKey returns the storage key of a noticiero's MP3.
func AudioKey(id string) string {
	return audioKeyPrefix + id + ".mp3"
}

// Draft aggregates active feeds, filters the items and generates a PENDING
// noticiero from them.
func (o *Orchestrator) Draft(ctx context.Context) (*store.Noticiero, error) {
	ctx = services.WithStage(ctx, "draft")
	logger := logging.WithContext(ctx, o.logger)

	settings, err := o.deps.Store.Settings(ctx)
	if err != nil {
		return nil, err
	}
	cfg := settings.Normalized()
	if cfg.ChannelName == "" || cfg.MalePresenter == "" || cfg.FemalePresenter == "" {
		return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "draft",
			"channel name and both presenters must be configured", nil)
	}

	sources, err := o.deps.Store.ListFeedSources(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "draft", "no active feed sources", nil)
	}
	targets := make([]feeds.Source, 0, len(sources))
	for _, src := range sources {
		targets = append(targets, feeds.Source{Name: src.Name, URL: src.URL})
	}

	items := o.deps.Collector.Collect(ctx, targets)
	fresh := feeds.FilterAndLog(logger, items, feeds.FilterOptions{
		Now:           o.deps.Now(),
		Window:        o.deps.FreshnessWindow,
		CensoredWords: cfg.CensoredWords,
	})
	if len(fresh) == 0 {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "draft",
			fmt.Sprintf("no fresh news among %d collected items", len(items)), nil)
	}

	n, err := o.deps.Drafter.GenerateDraft(ctx, fresh, cfg)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Publish moves a PENDING noticiero to PUBLISHED and queues its audio. The
// queue slot is reserved before the transition, so a published noticiero
// always has its job queued. The call returns once the job is queued.
func (o *Orchestrator) Publish(ctx context.Context, id string) (*store.Noticiero, error) {
	slot, err := o.runner.Reserve()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "orchestrator", "publish", "audio runner is not accepting jobs", err)
	}
	n, err := o.deps.Store.TransitionNoticiero(ctx, id, store.StatePending, store.StatePublished)
	if err != nil {
		slot.Release()
		return n, err
	}
	slot.Submit(id)
	logging.WithContext(services.WithNoticieroID(ctx, id), o.logger).
		Info("noticiero published", logging.String("title", n.Title))
	return n, nil
}

// Reject moves a PENDING noticiero to REJECTED.
func (o *Orchestrator) Reject(ctx context.Context, id string) (*store.Noticiero, error) {
	n, err := o.deps.Store.TransitionNoticiero(ctx, id, store.StatePending, store.StateRejected)
	if err != nil {
		return n, err
	}
	logging.WithContext(services.WithNoticieroID(ctx, id), o.logger).Info("noticiero rejected")
	return n, nil
}

// Get returns one noticiero.
func (o *Orchestrator) Get(ctx context.Context, id string) (*store.Noticiero, error) {
	return o.deps.Store.GetNoticiero(ctx, id)
}

// List returns noticieros newest first.
func (o *Orchestrator) List(ctx context.Context, filter store.ListFilter) ([]*store.Noticiero, error) {
	return o.deps.Store.ListNoticieros(ctx, filter)
}

// Latest returns the most recent PUBLISHED noticiero.
func (o *Orchestrator) Latest(ctx context.Context) (*store.Noticiero, error) {
	return o.deps.Store.LatestPublished(ctx)
}

// Delete removes a noticiero and, when it was published, its audio.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	n, err := o.deps.Store.DeleteNoticiero(ctx, id)
	if err != nil {
		return err
	}
	if n.State == store.StatePublished {
		if err := o.deps.Audio.Delete(ctx, AudioKey(id)); err != nil {
			logging.WarnWithContext(logging.WithContext(services.WithNoticieroID(ctx, id), o.logger),
				"audio delete failed", "audio_delete_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "orphaned audio object remains in the bucket"),
			)
		}
	}
	return nil
}

// RenderAudio synthesizes, transcodes and uploads the audio of a PUBLISHED
// noticiero. The Runner calls it for every publish.
func (o *Orchestrator) RenderAudio(ctx context.Context, id string) error {
	n, err := o.publishedNoticiero(ctx, id)
	if err != nil {
		return err
	}
	settings, err := o.deps.Store.Settings(ctx)
	if err != nil {
		return err
	}
	logger := logging.WithContext(services.WithNoticieroID(ctx, id), o.logger)

	wav, err := o.deps.Synthesizer.Synthesize(ctx, n.Guion, settings)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	mp3, err := o.deps.Transcoder.Transcode(ctx, wav)
	if err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	key := AudioKey(id)
	location, err := o.deps.Audio.Upload(ctx, key, mp3, audioContentType)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	logger.Info("audio stored",
		logging.String("key", key),
		logging.String("url", location),
		logging.Int("bytes", len(mp3)),
	)
	return nil
}

// OpenAudio streams the MP3 of a PUBLISHED noticiero, limited to byteRange
// when it is not empty. Unpublished noticieros and audio still being rendered
// both read as not found.
func (o *Orchestrator) OpenAudio(ctx context.Context, id, byteRange string) (*storage.Object, error) {
	if _, err := o.publishedNoticiero(ctx, id); err != nil {
		return nil, err
	}
	return o.deps.Audio.OpenRange(ctx, AudioKey(id), byteRange)
}

// OpenLatestAudio streams the newest published noticiero's MP3.
func (o *Orchestrator) OpenLatestAudio(ctx context.Context, byteRange string) (*store.Noticiero, *storage.Object, error) {
	n, err := o.Latest(ctx)
	if err != nil {
		return nil, nil, err
	}
	obj, err := o.deps.Audio.OpenRange(ctx, AudioKey(n.ID), byteRange)
	if err != nil {
		return nil, nil, err
	}
	return n, obj, nil
}

// AudioURL returns a presigned URL for a PUBLISHED noticiero whose audio exists.
func (o *Orchestrator) AudioURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	if _, err := o.publishedNoticiero(ctx, id); err != nil {
		return "", err
	}
	key := AudioKey(id)
	if !o.deps.Audio.Exists(ctx, key) {
		return "", services.Wrap(services.ErrNotFound, "orchestrator", "audio url", "audio not available yet", nil)
	}
	if ttl <= 0 {
		ttl = o.deps.SignedURLTTL
	}
	return o.deps.Audio.SignedDownloadURL(ctx, key, ttl)
}

// AudioInfo returns the stored audio metadata of a PUBLISHED noticiero.
func (o *Orchestrator) AudioInfo(ctx context.Context, id string) (storage.ObjectInfo, error) {
	if _, err := o.publishedNoticiero(ctx, id); err != nil {
		return storage.ObjectInfo{}, err
	}
	return o.deps.Audio.Metadata(ctx, AudioKey(id))
}

// PublicAudioURL returns the unauthenticated bucket URL of a PUBLISHED
// noticiero's audio. It does not check that the object exists.
func (o *Orchestrator) PublicAudioURL(ctx context.Context, id string) (string, error) {
	if _, err := o.publishedNoticiero(ctx, id); err != nil {
		return "", err
	}
	return o.deps.Audio.PublicURL(AudioKey(id)), nil
}

// DownloadAudio reads the whole MP3 of a PUBLISHED noticiero.
func (o *Orchestrator) DownloadAudio(ctx context.Context, id string) ([]byte, error) {
	if _, err := o.publishedNoticiero(ctx, id); err != nil {
		return nil, err
	}
	return o.deps.Audio.Download(ctx, AudioKey(id))
}

// ImportAudio replaces the stored MP3 of a PUBLISHED noticiero with body,
// for renditions produced outside the pipeline.
func (o *Orchestrator) ImportAudio(ctx context.Context, id string, body io.Reader) (string, error) {
	if _, err := o.publishedNoticiero(ctx, id); err != nil {
		return "", err
	}
	key := AudioKey(id)
	location, err := o.deps.Audio.UploadStream(ctx, key, body, audioContentType)
	if err != nil {
		return "", fmt.Errorf("import: %w", err)
	}
	logging.WithContext(services.WithNoticieroID(ctx, id), o.logger).Info("audio imported", logging.String("key", key))
	return location, nil
}

// AudioUploadURL returns a presigned PUT URL for the audio key of a
// PUBLISHED noticiero.
func (o *Orchestrator) AudioUploadURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	if _, err := o.publishedNoticiero(ctx, id); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = o.deps.SignedURLTTL
	}
	return o.deps.Audio.SignedUploadURL(ctx, AudioKey(id), audioContentType, ttl)
}

// AudioObjects lists stored audio artifacts, at most limit of them.
func (o *Orchestrator) AudioObjects(ctx context.Context, limit int) ([]storage.ObjectInfo, error) {
	return o.deps.Audio.List(ctx, audioKeyPrefix, limit)
}

// Status summarizes the pipeline for the status endpoint.
type Status struct {
	Counts map[store.State]int `json:"counts"`
	Audio  RunnerStatus        `json:"audio"`
}

// Status returns noticiero counts and runner activity.
func (o *Orchestrator) Status(ctx context.Context) (Status, error) {
	counts, err := o.deps.Store.CountByState(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{Counts: counts, Audio: o.runner.Status()}, nil
}

func (o *Orchestrator) publishedNoticiero(ctx context.Context, id string) (*store.Noticiero, error) {
	n, err := o.deps.Store.GetNoticiero(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.State != store.StatePublished {
		return nil, services.Wrap(services.ErrNotFound, "orchestrator", "audio",
			fmt.Sprintf("noticiero %s is %s", id, n.State), nil)
	}
	return n, nil
}

// IsNotFound reports whether err means the resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
