package outbound

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type recordedSend struct {
	target  string
	text    string
	whisper bool
}

type fakeTransport struct {
	sends   []recordedSend
	failOn  int // 1-based send index to fail at, 0 for never
	failErr error
}

func (f *fakeTransport) Send(ctx context.Context, channel, text string) error {
	return f.record(recordedSend{target: channel, text: text})
}

func (f *fakeTransport) SendDirect(ctx context.Context, userID, text string) error {
	return f.record(recordedSend{target: userID, text: text, whisper: true})
}

func (f *fakeTransport) record(s recordedSend) error {
	if f.failOn > 0 && len(f.sends)+1 == f.failOn {
		return f.failErr
	}
	f.sends = append(f.sends, s)
	return nil
}

func newTestDispatcher(t *testing.T, capacity int, tr *fakeTransport) *Dispatcher {
	t.Helper()
	g, err := NewGovernor(capacity, 30*time.Second)
	if err != nil {
		t.Fatalf("NewGovernor: %v", err)
	}
	return NewDispatcher(g, tr)
}

func TestSayShortMessageSingleSend(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDispatcher(t, 20, tr)

	if err := d.Say(context.Background(), "#general", "hello"); err != nil {
		t.Fatalf("Say: %v", err)
	}
	if len(tr.sends) != 1 || tr.sends[0].text != "hello" || tr.sends[0].target != "#general" {
		t.Fatalf("sends = %+v, want one send of %q", tr.sends, "hello")
	}
	if got := d.gov.Available(); got != 19 {
		t.Fatalf("governor has %d tokens, want 19", got)
	}
}

func TestSaySplitsAndPreservesOrder(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDispatcher(t, 20, tr)

	text := strings.TrimSpace(strings.Repeat("alpha beta gamma ", 80))
	if err := d.Say(context.Background(), "#general", text); err != nil {
		t.Fatalf("Say: %v", err)
	}
	if len(tr.sends) < 2 {
		t.Fatalf("got %d sends, want the message split across several", len(tr.sends))
	}

	var parts []string
	for _, s := range tr.sends {
		if len(s.text) > MaxMessageLen {
			t.Fatalf("sent chunk of %d bytes, over MaxMessageLen", len(s.text))
		}
		parts = append(parts, s.text)
	}
	if strings.Join(parts, " ") != text {
		t.Fatal("chunks arrived out of order or with content lost")
	}

	if got := d.gov.Available(); got != 20-len(tr.sends) {
		t.Fatalf("governor has %d tokens, want one spent per chunk (%d)", got, 20-len(tr.sends))
	}
}

func TestSayStopsAfterTransportFailure(t *testing.T) {
	sendErr := errors.New("connection reset")
	tr := &fakeTransport{failOn: 2, failErr: sendErr}
	d := newTestDispatcher(t, 20, tr)

	text := strings.TrimSpace(strings.Repeat("word ", 250)) // 3 chunks at 500
	err := d.Say(context.Background(), "#general", text)
	if !errors.Is(err, sendErr) {
		t.Fatalf("Say: got %v, want the transport error", err)
	}
	// First chunk delivered, second failed, third never attempted.
	if len(tr.sends) != 1 {
		t.Fatalf("got %d delivered sends, want 1", len(tr.sends))
	}
}

func TestWhisperUsesDirectSurface(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDispatcher(t, 20, tr)

	if err := d.Whisper(context.Background(), "user42", "psst"); err != nil {
		t.Fatalf("Whisper: %v", err)
	}
	if len(tr.sends) != 1 || !tr.sends[0].whisper || tr.sends[0].target != "user42" {
		t.Fatalf("sends = %+v, want one whisper to user42", tr.sends)
	}
}

func TestDispatchAbandonedOnContextExpiry(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDispatcher(t, 1, tr)
	d.gov.TryAdmit() // exhaust the window

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Say(ctx, "#general", "queued behind an empty bucket")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Say: got %v, want deadline exceeded", err)
	}
	if len(tr.sends) != 0 {
		t.Fatalf("got %d sends on an exhausted governor, want 0", len(tr.sends))
	}
}
