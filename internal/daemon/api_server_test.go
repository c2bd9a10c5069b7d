package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"noticiero/internal/pipeline"
	"noticiero/internal/storage"
	"noticiero/internal/store"
	"noticiero/internal/testsupport"
)

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func do(t *testing.T, handler http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var resp testResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, resp
}

func TestAPIRequiresTokenForEditorialRoutes(t *testing.T) {
	env := newTestEnv(t, testsupport.WithAPIToken("secret"))
	handler := env.daemon.api.routes()
	n := testsupport.NewNoticiero(t, env.st, "uno", store.StatePending)

	w, resp := do(t, handler, http.MethodGet, "/api/noticieros", "", "")
	if w.Code != http.StatusUnauthorized || resp.Success {
		t.Fatalf("expected 401, got %d %+v", w.Code, resp)
	}
	w, _ = do(t, handler, http.MethodGet, "/api/noticieros", "wrong", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", w.Code)
	}
	w, resp = do(t, handler, http.MethodGet, "/api/noticieros", "secret", "")
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("expected 200, got %d %+v", w.Code, resp)
	}
	var items []store.Noticiero
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 || items[0].ID != n.ID {
		t.Fatalf("unexpected list %+v", items)
	}

	w, _ = do(t, handler, http.MethodGet, "/api/noticieros/"+n.ID, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected public GET by id, got %d", w.Code)
	}
}

func TestAPIRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)
	handler := env.daemon.api.routes()

	w, _ := do(t, handler, http.MethodGet, "/api/noticieros", "", "")
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/noticieros", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}

func TestAPIDraftPublishReject(t *testing.T) {
	env := newTestEnv(t)
	handler := env.daemon.api.routes()
	ctx := context.Background()
	if err := env.orch.Runner().Start(ctx); err != nil {
		t.Fatalf("runner start: %v", err)
	}
	t.Cleanup(env.orch.Runner().Stop)

	w, resp := do(t, handler, http.MethodPost, "/api/noticieros", "", "")
	if w.Code != http.StatusUnprocessableEntity || resp.Success {
		t.Fatalf("expected 422 without feeds, got %d %+v", w.Code, resp)
	}

	if _, err := env.st.AddFeedSource(ctx, "Uno", "https://uno.example/rss"); err != nil {
		t.Fatalf("AddFeedSource: %v", err)
	}
	w, resp = do(t, handler, http.MethodPost, "/api/noticieros", "", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %+v", w.Code, resp)
	}
	var draft store.Noticiero
	if err := json.Unmarshal(resp.Data, &draft); err != nil {
		t.Fatalf("decode draft: %v", err)
	}
	if draft.State != store.StatePending {
		t.Fatalf("expected PENDING, got %s", draft.State)
	}

	w, resp = do(t, handler, http.MethodPatch, "/api/noticieros/"+draft.ID+"/publish", "", "")
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("expected publish 200, got %d %+v", w.Code, resp)
	}
	w, _ = do(t, handler, http.MethodPatch, "/api/noticieros/"+draft.ID+"/publish", "", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second publish, got %d", w.Code)
	}
	w, _ = do(t, handler, http.MethodPatch, "/api/noticieros/"+draft.ID+"/reject", "", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on reject after publish, got %d", w.Code)
	}
	w, _ = do(t, handler, http.MethodPatch, "/api/noticieros/missing/reject", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing id, got %d", w.Code)
	}

	env.orch.Runner().Stop()
	if _, ok := env.s3.Get(pipeline.AudioKey(draft.ID)); !ok {
		t.Fatalf("expected audio uploaded, keys=%v", env.s3.Keys())
	}
}

func TestAPIAudioStreaming(t *testing.T) {
	env := newTestEnv(t)
	handler := env.daemon.api.routes()
	ctx := context.Background()

	pending := testsupport.NewNoticiero(t, env.st, "pendiente", store.StatePending)
	w, resp := do(t, handler, http.MethodGet, "/api/noticieros/"+pending.ID+"/audio", "", "")
	if w.Code != http.StatusNotFound || resp.Success {
		t.Fatalf("expected 404 for pending audio, got %d", w.Code)
	}

	w, _ = do(t, handler, http.MethodGet, "/api/noticieros/latest/audio", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without published noticieros, got %d", w.Code)
	}

	published := testsupport.NewNoticiero(t, env.st, "publicado", store.StatePublished)
	w, _ = do(t, handler, http.MethodGet, "/api/noticieros/"+published.ID+"/audio", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 while audio is missing, got %d", w.Code)
	}
	if err := env.orch.RenderAudio(ctx, published.ID); err != nil {
		t.Fatalf("RenderAudio: %v", err)
	}

	for _, path := range []string{
		"/api/noticieros/" + published.ID + "/audio",
		"/api/noticieros/latest/audio",
	} {
		w, _ = do(t, handler, http.MethodGet, path, "", "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if w.Body.String() != "ID3-mp3-bytes" {
			t.Fatalf("%s: unexpected body %q", path, w.Body.String())
		}
		headers := w.Header()
		if headers.Get("Content-Type") != "audio/mpeg" {
			t.Fatalf("unexpected content type %q", headers.Get("Content-Type"))
		}
		if headers.Get("Content-Length") != "13" {
			t.Fatalf("unexpected content length %q", headers.Get("Content-Length"))
		}
		if want := `inline; filename="noticiero-` + published.ID + `.mp3"`; headers.Get("Content-Disposition") != want {
			t.Fatalf("unexpected disposition %q", headers.Get("Content-Disposition"))
		}
		if headers.Get("Cache-Control") != "public, max-age=31536000" || headers.Get("Accept-Ranges") != "bytes" {
			t.Fatalf("unexpected cache headers %v", headers)
		}
	}

	w, resp = do(t, handler, http.MethodGet, "/api/noticieros/"+published.ID+"/audio-url?ttl=60", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected signed url, got %d %+v", w.Code, resp)
	}
	var payload map[string]string
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("decode url: %v", err)
	}
	if !strings.Contains(payload["url"], "X-Amz-Expires=60") {
		t.Fatalf("unexpected url %q", payload["url"])
	}
	w, _ = do(t, handler, http.MethodGet, "/api/noticieros/"+published.ID+"/audio-url?ttl=abc", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad ttl, got %d", w.Code)
	}
}

func TestAPIDeleteNoticiero(t *testing.T) {
	env := newTestEnv(t)
	handler := env.daemon.api.routes()
	n := testsupport.NewNoticiero(t, env.st, "publicado", store.StatePublished)
	if err := env.orch.RenderAudio(context.Background(), n.ID); err != nil {
		t.Fatalf("RenderAudio: %v", err)
	}

	w, resp := do(t, handler, http.MethodDelete, "/api/noticieros/"+n.ID, "", "")
	if w.Code != http.StatusOK || resp.Message == "" {
		t.Fatalf("expected delete 200, got %d %+v", w.Code, resp)
	}
	if len(env.s3.Keys()) != 0 {
		t.Fatalf("expected audio removed, keys=%v", env.s3.Keys())
	}
	w, _ = do(t, handler, http.MethodDelete, "/api/noticieros/"+n.ID, "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", w.Code)
	}
}

func TestAPIListRejectsUnknownState(t *testing.T) {
	env := newTestEnv(t)
	w, _ := do(t, env.daemon.api.routes(), http.MethodGet, "/api/noticieros?state=ARCHIVED", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPIFeeds(t *testing.T) {
	env := newTestEnv(t)
	handler := env.daemon.api.routes()

	w, resp := do(t, handler, http.MethodPost, "/api/feeds", "", `{"name":"Uno","url":"https://uno.example/rss"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %+v", w.Code, resp)
	}
	var src store.FeedSource
	if err := json.Unmarshal(resp.Data, &src); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if !src.Active {
		t.Fatal("new feeds start active")
	}

	w, _ = do(t, handler, http.MethodPost, "/api/feeds", "", `{"name":"Otro","url":"https://uno.example/rss"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for duplicate url, got %d", w.Code)
	}
	w, _ = do(t, handler, http.MethodPost, "/api/feeds", "", `{"name":"Malo","url":"ftp://x"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad url, got %d", w.Code)
	}
	w, _ = do(t, handler, http.MethodPost, "/api/feeds", "", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", w.Code)
	}

	w, resp = do(t, handler, http.MethodPatch, "/api/feeds/"+src.ID+"/deactivate", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected deactivate 200, got %d", w.Code)
	}
	w, resp = do(t, handler, http.MethodGet, "/api/feeds?active=true", "", "")
	if w.Code != http.StatusOK || string(resp.Data) != "[]" {
		t.Fatalf("expected no active feeds, got %d %s", w.Code, resp.Data)
	}
	w, _ = do(t, handler, http.MethodPatch, "/api/feeds/"+src.ID+"/activate", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected activate 200, got %d", w.Code)
	}
	w, _ = do(t, handler, http.MethodDelete, "/api/feeds/"+src.ID, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected delete 200, got %d", w.Code)
	}
	w, _ = do(t, handler, http.MethodDelete, "/api/feeds/"+src.ID, "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAPISettings(t *testing.T) {
	env := newTestEnv(t, testsupport.WithBroadcast("Radio Uno", "Carlos", "Lucia", "banco"))
	handler := env.daemon.api.routes()

	w, resp := do(t, handler, http.MethodGet, "/api/settings", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var cfg store.BroadcastConfig
	if err := json.Unmarshal(resp.Data, &cfg); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if cfg.ChannelName != "Radio Uno" || len(cfg.CensoredWords) != 1 {
		t.Fatalf("unexpected seeded settings %+v", cfg)
	}

	body := `{"channelName":"Radio Dos","malePresenter":"Pedro","femalePresenter":"Ana","censoredWords":["crisis"," "]}`
	w, resp = do(t, handler, http.MethodPut, "/api/settings", "", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %+v", w.Code, resp)
	}
	if err := json.Unmarshal(resp.Data, &cfg); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if cfg.ChannelName != "Radio Dos" || len(cfg.CensoredWords) != 1 || cfg.CensoredWords[0] != "crisis" {
		t.Fatalf("unexpected updated settings %+v", cfg)
	}

	w, _ = do(t, handler, http.MethodPut, "/api/settings", "", `{"channelName":"","malePresenter":"a","femalePresenter":"b"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty channel, got %d", w.Code)
	}
}

func TestAPIStatus(t *testing.T) {
	env := newTestEnv(t, testsupport.WithStubbedBinaries())
	testsupport.NewNoticiero(t, env.st, "uno", store.StatePending)

	w, resp := do(t, env.daemon.api.routes(), http.MethodGet, "/api/status", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var status daemonStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Pipeline.Counts[store.StatePending] != 1 {
		t.Fatalf("unexpected counts %+v", status.Pipeline.Counts)
	}
	if len(status.Dependencies) != 1 || !status.Dependencies[0].Available {
		t.Fatalf("expected ffmpeg available, got %+v", status.Dependencies)
	}
}

func TestAPIAudioServesByteRanges(t *testing.T) {
	env := newTestEnv(t)
	handler := env.daemon.api.routes()
	published := testsupport.NewNoticiero(t, env.st, "publicado", store.StatePublished)
	if err := env.orch.RenderAudio(context.Background(), published.ID); err != nil {
		t.Fatalf("RenderAudio: %v", err)
	}

	get := func(path, byteRange string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if byteRange != "" {
			req.Header.Set("Range", byteRange)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	cases := []struct {
		byteRange string
		status    int
		body      string
		span      string
	}{
		{"bytes=0-2", http.StatusPartialContent, "ID3", "bytes 0-2/13"},
		{"bytes=4-", http.StatusPartialContent, "mp3-bytes", "bytes 4-12/13"},
		{"bytes=-5", http.StatusPartialContent, "bytes", "bytes 8-12/13"},
		{"bytes=0-1,4-5", http.StatusOK, "ID3-mp3-bytes", ""},
		{"items=0-1", http.StatusOK, "ID3-mp3-bytes", ""},
	}
	for _, path := range []string{
		"/api/noticieros/" + published.ID + "/audio",
		"/api/noticieros/latest/audio",
	} {
		for _, tc := range cases {
			w := get(path, tc.byteRange)
			if w.Code != tc.status || w.Body.String() != tc.body {
				t.Fatalf("%s %s: got %d %q, want %d %q", path, tc.byteRange, w.Code, w.Body.String(), tc.status, tc.body)
			}
			if got := w.Header().Get("Content-Range"); got != tc.span {
				t.Fatalf("%s %s: Content-Range %q, want %q", path, tc.byteRange, got, tc.span)
			}
			if got := w.Header().Get("Content-Length"); got != strconv.Itoa(len(tc.body)) {
				t.Fatalf("%s %s: Content-Length %q", path, tc.byteRange, got)
			}
		}
	}

	w := get("/api/noticieros/"+published.ID+"/audio", "bytes=50-60")
	if w.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("expected 416 for an unsatisfiable range, got %d", w.Code)
	}
}

func TestAPIAudioInfo(t *testing.T) {
	env := newTestEnv(t)
	handler := env.daemon.api.routes()
	published := testsupport.NewNoticiero(t, env.st, "publicado", store.StatePublished)
	path := "/api/noticieros/" + published.ID + "/audio-info"

	if w, _ := do(t, handler, http.MethodGet, path, "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before rendering, got %d", w.Code)
	}
	if err := env.orch.RenderAudio(context.Background(), published.ID); err != nil {
		t.Fatalf("RenderAudio: %v", err)
	}
	w, resp := do(t, handler, http.MethodGet, path, "", "")
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("expected audio info, got %d %+v", w.Code, resp)
	}
	var info storage.ObjectInfo
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Key != pipeline.AudioKey(published.ID) || info.Size != 13 || info.ContentType != "audio/mpeg" || info.ETag == "" {
		t.Fatalf("unexpected audio info %+v", info)
	}

	pending := testsupport.NewNoticiero(t, env.st, "pendiente", store.StatePending)
	if w, _ := do(t, handler, http.MethodGet, "/api/noticieros/"+pending.ID+"/audio-info", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unpublished noticiero, got %d", w.Code)
	}
}
