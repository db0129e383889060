// Package sse implements a Server-Sent Events broker that tells open pages
// when the documents under the serve root change.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Event types sent to clients.
const (
	DocCreated  = "doc.created"
	DocUpdated  = "doc.updated"
	DocRemoved  = "doc.removed"
	TreeChanged = "tree.changed"
)

var docEventTypes = map[string]string{
	"created": DocCreated,
	"updated": DocUpdated,
	"removed": DocRemoved,
}

const (
	clientBuffer     = 64
	defaultKeepAlive = 30 * time.Second
	retryMillis      = 3000
)

// Event is one change notification. Path is the slash-separated document
// path relative to the serve root; it is empty for tree.changed.
type Event struct {
	Type string
	Path string
}

// encode renders the event in the text/event-stream wire format.
func (e Event) encode(id uint64) []byte {
	data, _ := json.Marshal(struct {
		Path string `json:"path,omitempty"`
	}{e.Path})
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, e.Type, data))
}

type client struct {
	ch chan []byte
	// path, when set, limits document events to that one document.
	path string
}

func (c *client) wants(e Event) bool {
	return c.path == "" || e.Path == "" || e.Path == c.path
}

// Broker fans change events out to connected clients. A client that falls
// behind by more than its buffer loses events rather than stalling the
// publisher.
type Broker struct {
	treeMin   time.Duration
	keepAlive time.Duration

	mu       sync.Mutex
	clients  map[*client]struct{}
	seq      uint64
	lastTree time.Time
	closed   bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets how often an idle stream gets a comment line.
// Non-positive values keep the default.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.keepAlive = d
		}
	}
}

// NewBroker creates a new SSE broker. tree.changed is sent at most once per
// treeThrottle.
func NewBroker(treeThrottle time.Duration, opts ...Option) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = 2 * time.Second
	}
	b := &Broker{
		treeMin:   treeThrottle,
		keepAlive: defaultKeepAlive,
		clients:   make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close disconnects every client. Later subscriptions get a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for c := range b.clients {
		close(c.ch)
	}
	b.clients = nil
}

// Subscribe registers a client. path filters document events to one
// document; "" receives everything. The returned cancel func is idempotent.
func (b *Broker) Subscribe(path string) (<-chan []byte, func()) {
	c := &client{ch: make(chan []byte, clientBuffer), path: strings.Trim(path, "/")}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(c.ch)
		return c.ch, func() {}
	}
	b.clients[c] = struct{}{}

	var once sync.Once
	return c.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.clients[c]; ok {
				delete(b.clients, c)
				close(c.ch)
			}
		})
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// publish sends an event to every interested client.
func (b *Broker) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcast(e)
}

// broadcast requires b.mu.
func (b *Broker) broadcast(e Event) {
	if b.closed {
		return
	}
	b.seq++
	msg := e.encode(b.seq)
	for c := range b.clients {
		if !c.wants(e) {
			continue
		}
		select {
		case c.ch <- msg:
		default:
		}
	}
}

// PublishDocumentEvent publishes a document change and a throttled
// tree.changed event. kind is "created", "updated" or "removed"; other kinds
// are dropped.
func (b *Broker) PublishDocumentEvent(kind, rel string) {
	typ, ok := docEventTypes[kind]
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcast(Event{Type: typ, Path: rel})

	if now := time.Now(); now.Sub(b.lastTree) >= b.treeMin {
		b.lastTree = now
		b.broadcast(Event{Type: TreeChanged})
	}
}

// ServeHTTP is the SSE endpoint handler (GET /_mdserve/events[?path=rel]).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, cancel := b.Subscribe(r.URL.Query().Get("path"))
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
