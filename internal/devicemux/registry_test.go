package devicemux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MrWong99/claimwright/pkg/coretypes"
)

func TestDiscoverAndConnect(t *testing.T) {
	r := New(Config{}, nil, nil)
	r.Discover("dev1", coretypes.TransportStream, "lapel-mic", 90)

	devs := r.ListDevices()
	if len(devs) != 1 || devs[0].ID != "dev1" {
		t.Fatalf("ListDevices() = %v, want one device dev1", devs)
	}
	if devs[0].State != coretypes.StateDiscovered {
		t.Errorf("initial state = %q, want discovered", devs[0].State)
	}

	if err := r.Connect("dev1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := r.Connect("dev1"); err == nil {
		t.Error("Connect on already-connected device should conflict")
	}
	if err := r.Connect("missing"); err == nil {
		t.Error("Connect on unknown device should fail not-found")
	}
}

func TestSelectActive(t *testing.T) {
	r := New(Config{}, nil, nil)
	if err := r.SelectActive("dev1"); err == nil {
		t.Error("SelectActive on unknown device should fail")
	}
	r.Discover("dev1", coretypes.TransportStream, "mic", 80)
	if err := r.SelectActive("dev1"); err != nil {
		t.Fatalf("SelectActive: %v", err)
	}
	id, ok := r.ActiveDevice()
	if !ok || id != "dev1" {
		t.Errorf("ActiveDevice() = (%q, %v), want (dev1, true)", id, ok)
	}
}

func TestIngestStream_EmitsUtteranceBetweenMarkers(t *testing.T) {
	var gotPCM []byte
	var gotUtterance coretypes.Utterance
	var closed coretypes.Session

	r := New(Config{SampleRate: 16000}, func(u coretypes.Utterance, pcm []byte) {
		gotUtterance = u
		gotPCM = pcm
	}, func(s coretypes.Session) {
		closed = s
	})
	r.Discover("dev1", coretypes.TransportStream, "mic", 90)

	pcm := make([]byte, 3200)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	var buf bytes.Buffer
	buf.WriteString("AUDIO_START\n")
	buf.Write(pcm)
	buf.WriteString("AUDIO_END\n")

	if err := r.IngestStream("dev1", &buf); err != nil {
		t.Fatalf("IngestStream: %v", err)
	}

	if gotUtterance.SessionID == "" {
		t.Fatal("no utterance emitted")
	}
	if len(gotPCM) != len(pcm) {
		t.Errorf("utterance PCM length = %d, want %d", len(gotPCM), len(pcm))
	}
	if closed.TerminatingCause != coretypes.CauseDisconnect {
		t.Errorf("TerminatingCause = %q, want disconnect (clean EOF)", closed.TerminatingCause)
	}
}

func TestIngestStream_ImplicitRestartWarns(t *testing.T) {
	var utterances int
	var closed coretypes.Session

	r := New(Config{SampleRate: 16000}, func(u coretypes.Utterance, pcm []byte) {
		utterances++
	}, func(s coretypes.Session) {
		closed = s
	})
	r.Discover("dev1", coretypes.TransportStream, "mic", 90)

	pcm := bytes.Repeat([]byte{0xAB, 0xCD}, 1600)
	var buf bytes.Buffer
	buf.WriteString("AUDIO_START\n")
	buf.Write(pcm)
	buf.WriteString("AUDIO_START\n") // implicit restart, no matching END yet
	buf.Write(pcm)
	buf.WriteString("AUDIO_END\n")

	if err := r.IngestStream("dev1", &buf); err != nil {
		t.Fatalf("IngestStream: %v", err)
	}

	if utterances != 2 {
		t.Errorf("utterance count = %d, want 2 (one per AUDIO_START bracket)", utterances)
	}
	found := false
	for _, w := range closed.Warnings {
		if strings.Contains(w, "implicit utterance restart") {
			found = true
		}
	}
	if !found {
		t.Errorf("session warnings = %v, want implicit restart warning", closed.Warnings)
	}
}

func TestDisconnect_FinalizesSession(t *testing.T) {
	var closed coretypes.Session
	r := New(Config{}, nil, func(s coretypes.Session) { closed = s })
	r.Discover("dev1", coretypes.TransportStream, "mic", 90)
	_ = r.Connect("dev1")

	r.mu.Lock()
	r.newSessionLocked("dev1", coretypes.TransportStream)
	r.mu.Unlock()

	if err := r.Disconnect("dev1"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if closed.TerminatingCause != coretypes.CauseDisconnect {
		t.Errorf("TerminatingCause = %q, want disconnect", closed.TerminatingCause)
	}

	devs := r.ListDevices()
	if devs[0].State != coretypes.StateDisconnected {
		t.Errorf("state after Disconnect = %q, want disconnected", devs[0].State)
	}
}
