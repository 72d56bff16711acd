package transcription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/claimwright/internal/apperr"
	asrmock "github.com/MrWong99/claimwright/pkg/inference/asr/mock"
	"github.com/MrWong99/claimwright/pkg/coretypes"
)

func TestTranscribe_Success(t *testing.T) {
	p := &asrmock.Provider{Text: "the forecast looks good", Language: "en", Rate: 16000}
	stage := New(p)

	u := coretypes.Utterance{ID: "u1", SessionID: "s1", SampleRate: 16000, Duration: 2 * time.Second}
	pcm := make([]byte, 32000)

	tr, err := stage.Transcribe(context.Background(), u, pcm)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "the forecast looks good" {
		t.Errorf("Text = %q", tr.Text)
	}
	if tr.UtteranceID != "u1" {
		t.Errorf("UtteranceID = %q, want u1", tr.UtteranceID)
	}
}

func TestTranscribe_ResamplesMismatchedRate(t *testing.T) {
	p := &asrmock.Provider{Text: "ok", Rate: 16000}
	stage := New(p)

	u := coretypes.Utterance{ID: "u1", SessionID: "s1", SampleRate: 8000, Duration: time.Second}
	pcm := make([]byte, 16000)

	_, err := stage.Transcribe(context.Background(), u, pcm)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}

func TestTranscribe_AdapterFailureWraps(t *testing.T) {
	p := &asrmock.Provider{FailNext: true, Err: errors.New("boom")}
	stage := New(p)

	u := coretypes.Utterance{ID: "u1", SampleRate: 16000, Duration: time.Second}
	_, err := stage.Transcribe(context.Background(), u, make([]byte, 32000))
	if !apperr.Is(err, apperr.KindAdapterFailure) {
		t.Errorf("error kind = %v, want adapter_failure", apperr.KindOf(err))
	}
}
