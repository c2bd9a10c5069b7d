package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"noticiero/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcoder", "ffmpeg", "encode failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcoder", "ffmpeg", "encode failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{services.Wrap(services.ErrNotFound, "store", "get", "missing", nil), http.StatusNotFound},
		{services.Wrap(services.ErrInvalidTransition, "pipeline", "publish", "already published", nil), http.StatusConflict},
		{services.Wrap(services.ErrConfiguration, "script", "draft", "channel missing", nil), http.StatusUnprocessableEntity},
		{services.Wrap(services.ErrGeneration, "script", "draft", "exhausted", errors.New("x")), http.StatusInternalServerError},
		{services.Wrap(services.ErrTransient, "storage", "put", "", errors.New("io")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := services.HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
