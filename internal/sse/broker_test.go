package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// drain collects every message already buffered on ch.
func drain(ch <-chan []byte) []string {
	var out []string
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeCancel(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	_, cancel := b.Subscribe("")
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
	cancel()
	cancel()
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients = %d after cancel, want 0", n)
	}
}

func TestPublish_WireFormat(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch, cancel := b.Subscribe("")
	defer cancel()

	b.publish(Event{Type: DocCreated, Path: "a.md"})
	b.publish(Event{Type: DocUpdated, Path: "a.md"})

	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("messages = %q", msgs)
	}
	if want := "id: 1\nevent: doc.created\ndata: {\"path\":\"a.md\"}\n\n"; msgs[0] != want {
		t.Errorf("first = %q, want %q", msgs[0], want)
	}
	if !strings.HasPrefix(msgs[1], "id: 2\n") {
		t.Errorf("ids must increase: %q", msgs[1])
	}
}

func TestPublishDocumentEvent_TreeThrottle(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch, cancel := b.Subscribe("")
	defer cancel()

	b.PublishDocumentEvent("created", "a.md")
	b.PublishDocumentEvent("updated", "b.md")

	treeCount, docCount := 0, 0
	for _, msg := range drain(ch) {
		if strings.Contains(msg, "event: tree.changed") {
			treeCount++
		} else {
			docCount++
		}
	}
	if docCount != 2 {
		t.Errorf("doc events = %d, want 2", docCount)
	}
	if treeCount != 1 {
		t.Errorf("tree events = %d, want 1 (throttled)", treeCount)
	}
}

func TestPublishDocumentEvent_UnknownKindDropped(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch, cancel := b.Subscribe("")
	defer cancel()

	b.PublishDocumentEvent("renamed", "a.md")
	if msgs := drain(ch); len(msgs) != 0 {
		t.Errorf("unexpected messages: %q", msgs)
	}
}

func TestSubscribe_PathFilter(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch, cancel := b.Subscribe("/docs/a.md")
	defer cancel()

	b.PublishDocumentEvent("updated", "docs/b.md")
	b.PublishDocumentEvent("updated", "docs/a.md")

	msgs := drain(ch)
	// tree.changed (sent with the first event) plus the matching update.
	if len(msgs) != 2 {
		t.Fatalf("messages = %q", msgs)
	}
	if !strings.Contains(msgs[0], "tree.changed") || !strings.Contains(msgs[1], `"path":"docs/a.md"`) {
		t.Errorf("messages = %q", msgs)
	}
}

func TestSlowClientDoesNotBlock(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	_, cancel := b.Subscribe("")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer*4; i++ {
			b.publish(Event{Type: DocUpdated, Path: "a.md"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a full client")
	}
}

func TestClose(t *testing.T) {
	b := NewBroker(time.Hour)
	ch, cancel := b.Subscribe("")
	b.Close()
	b.Close()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("client channel should be closed")
	}
	late, _ := b.Subscribe("")
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed")
	}
	b.publish(Event{Type: DocUpdated})
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(time.Hour, WithKeepAlive(20*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/_mdserve/events?path=x.md", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.ClientCount() != 1 {
		t.Fatal("handler never subscribed")
	}

	b.PublishDocumentEvent("updated", "x.md")
	time.Sleep(60 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("missing retry hint: %q", body)
	}
	if !strings.Contains(body, "event: doc.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if !strings.Contains(body, ": ping\n\n") {
		t.Errorf("missing keep-alive: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if b.ClientCount() != 0 {
		t.Error("handler did not unsubscribe")
	}
}
