package stream

import (
	"errors"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"

	"github.com/collabscope/collabscope/pkg/models"
)

func TestSSESinkFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	sink, err := NewSSESink(rec)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	if err := sink.Send(models.Event{Type: models.EventStart, Total: 3}); err != nil {
		t.Fatalf("send: %v", err)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "data: ") || !strings.HasSuffix(body, "\n\n") {
		t.Errorf("frame = %q", body)
	}
	if !strings.Contains(body, `"type":"START"`) || !strings.Contains(body, `"total":3`) {
		t.Errorf("payload = %q", body)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q", got)
	}
}

func TestIsClientDisconnect(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{syscall.EPIPE, true},
		{syscall.ECONNRESET, true},
		{errors.New("write tcp 127.0.0.1:80: broken pipe"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("no such file"), false},
	}
	for _, c := range cases {
		if got := IsClientDisconnect(c.err); got != c.want {
			t.Errorf("IsClientDisconnect(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(2)
	if err := sink.Send(models.Event{Type: models.EventStart}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := sink.Send(models.Event{Type: models.EventDone}); err != nil {
		t.Fatalf("send: %v", err)
	}
	// Buffer full; the pipeline must not block.
	if err := sink.Send(models.Event{Type: models.EventDone}); err == nil {
		t.Error("expected buffer-full error")
	}

	got := <-sink.Events()
	if got.Type != models.EventStart {
		t.Errorf("first event = %s", got.Type)
	}
}
