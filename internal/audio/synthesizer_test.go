package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"noticiero/internal/logging"
	"noticiero/internal/services"
	"noticiero/internal/services/gemini"
	"noticiero/internal/store"
)

type fakeSpeech struct {
	speech   gemini.Speech
	err      error
	prompt   string
	speakers []gemini.SpeakerVoice
	calls    int
}

func (f *fakeSpeech) GenerateSpeech(_ context.Context, prompt string, speakers []gemini.SpeakerVoice) (gemini.Speech, error) {
	f.calls++
	f.prompt = prompt
	f.speakers = speakers
	return f.speech, f.err
}

type fixedInstruction string

func (f fixedInstruction) AudioInstruction(store.BroadcastConfig) string { return string(f) }

var (
	testVoices    = Voices{Male: "Charon", Female: "Leda"}
	testBroadcast = store.BroadcastConfig{ChannelName: "Canal", MalePresenter: "Carlos", FemalePresenter: "Lucia"}
)

func TestSynthesizeRepairsHeaderAndWritesDebugCopy(t *testing.T) {
	pcm := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	fake := &fakeSpeech{speech: gemini.Speech{MimeType: "audio/L16;rate=24000", Data: base64.StdEncoding.EncodeToString(pcm)}}
	debugDir := filepath.Join(t.TempDir(), "debug")
	synth := NewSynthesizer(fake, fixedInstruction("Lee el guion."), testVoices, debugDir, logging.NewNop())

	wav, err := synth.Synthesize(context.Background(), "CARLOS: Hola.\nLUCIA: Buenas.", testBroadcast)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !HasWAVHeader(wav) || len(wav) != len(pcm)+44 {
		t.Fatalf("expected repaired WAV, got %d bytes", len(wav))
	}
	if fake.prompt != "Lee el guion.\n\nCARLOS: Hola.\nLUCIA: Buenas." {
		t.Fatalf("unexpected prompt %q", fake.prompt)
	}
	if len(fake.speakers) != 2 || fake.speakers[0] != (gemini.SpeakerVoice{Speaker: "CARLOS", Voice: "Charon"}) ||
		fake.speakers[1] != (gemini.SpeakerVoice{Speaker: "LUCIA", Voice: "Leda"}) {
		t.Fatalf("unexpected speakers %+v", fake.speakers)
	}

	second := []byte{9, 9}
	fake.speech.Data = base64.StdEncoding.EncodeToString(second)
	if _, err := synth.Synthesize(context.Background(), "CARLOS: Otra vez.", testBroadcast); err != nil {
		t.Fatalf("second Synthesize: %v", err)
	}
	entries, err := os.ReadDir(debugDir)
	if err != nil {
		t.Fatalf("read debug dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "debug_audio.wav" {
		t.Fatalf("expected a single debug_audio.wav, got %v", entries)
	}
	latest, err := os.ReadFile(filepath.Join(debugDir, "debug_audio.wav"))
	if err != nil {
		t.Fatalf("read debug copy: %v", err)
	}
	if len(latest) != len(second)+44 {
		t.Fatalf("debug copy should hold the latest rendition, got %d bytes", len(latest))
	}
}

func TestSynthesizeEmptyPayload(t *testing.T) {
	fake := &fakeSpeech{speech: gemini.Speech{Data: "  "}}
	synth := NewSynthesizer(fake, fixedInstruction("x"), testVoices, "", logging.NewNop())
	if _, err := synth.Synthesize(context.Background(), "guion", testBroadcast); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	fake = &fakeSpeech{err: gemini.ErrEmptyResponse}
	synth = NewSynthesizer(fake, fixedInstruction("x"), testVoices, "", logging.NewNop())
	_, err := synth.Synthesize(context.Background(), "guion", testBroadcast)
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "no audio data generated") {
		t.Fatalf("expected no audio data error, got %v", err)
	}
}

func TestSynthesizePropagatesFailureWithoutRetry(t *testing.T) {
	boom := &gemini.StatusError{StatusCode: 503, Body: "overloaded"}
	fake := &fakeSpeech{err: boom}
	synth := NewSynthesizer(fake, fixedInstruction("x"), testVoices, "", logging.NewNop())
	_, err := synth.Synthesize(context.Background(), "guion", testBroadcast)
	var statusErr *gemini.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("expected a single call, got %d", fake.calls)
	}
}

func TestSynthesizeDebugFailureIsNotFatal(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	fake := &fakeSpeech{speech: gemini.Speech{Data: base64.StdEncoding.EncodeToString([]byte{1, 2})}}
	synth := NewSynthesizer(fake, fixedInstruction("x"), testVoices, filepath.Join(blocker, "debug"), logging.NewNop())
	if _, err := synth.Synthesize(context.Background(), "guion", testBroadcast); err != nil {
		t.Fatalf("debug write failure must not fail synthesis: %v", err)
	}
}
