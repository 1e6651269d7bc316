// Package telemetry fans per-frame latency and flight telemetry out to remote
// viewers over server-sent events and WebRTC data channels.
package telemetry

import (
	"encoding/base64"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/denis-giri/pdraw/internal/logger"
	"github.com/denis-giri/pdraw/internal/metrics"
	"github.com/denis-giri/pdraw/pkg/types"
)

// clientBuffer is the number of events a slow client may lag behind
const clientBuffer = 4

// SerializedEvent holds one report pre-serialized in every format, so the
// encoding cost is paid once per frame rather than once per client.
type SerializedEvent struct {
	FrameNum       uint64
	JSONData       []byte
	ProtobufData   []byte // raw wire format, for binary data channels
	ProtobufBase64 []byte // base64 of ProtobufData, for SSE
}

// NewSerializedEvent encodes s in every format
func NewSerializedEvent(s types.LatencySample) (*SerializedEvent, error) {
	jsonData, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	pbData, err := MarshalSample(s)
	if err != nil {
		return nil, err
	}
	return &SerializedEvent{
		FrameNum:       s.FrameNum,
		JSONData:       jsonData,
		ProtobufData:   pbData,
		ProtobufBase64: []byte(base64.StdEncoding.EncodeToString(pbData)),
	}, nil
}

// Broadcaster is a render latency sink that forwards every report to its
// subscribers. Sends never block: a subscriber whose buffer is full misses
// the event.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]chan *SerializedEvent
	latest  *SerializedEvent
	closed  bool

	dropped atomic.Uint64
	metrics *metrics.Metrics
	log     *logger.Module
}

// NewBroadcaster creates a broadcaster; m may be nil
func NewBroadcaster(m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan *SerializedEvent),
		metrics: m,
		log:     logger.For("Telemetry"),
	}
}

// Subscribe adds a client and returns its ID and event channel. The channel
// is closed by Unsubscribe or Close.
func (b *Broadcaster) Subscribe() (string, <-chan *SerializedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan *SerializedEvent, clientBuffer)
	if b.closed {
		close(ch)
		return id, ch
	}
	b.clients[id] = ch
	b.updateClientGauge()

	b.log.Debug("Client %s subscribed (total clients: %d)", id, len(b.clients))
	return id, ch
}

// Unsubscribe removes a client
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
		b.updateClientGauge()
		b.log.Debug("Client %s unsubscribed (remaining clients: %d)", id, len(b.clients))
	}
}

// ClientCount returns the number of subscribers
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Dropped returns the number of events skipped for slow clients
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Latest returns the last event, or nil before the first frame
func (b *Broadcaster) Latest() *SerializedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// RecordLatency serializes s and broadcasts it
func (b *Broadcaster) RecordLatency(s types.LatencySample) {
	event, err := NewSerializedEvent(s)
	if err != nil {
		b.log.Error("Failed to serialize frame #%d: %v", s.FrameNum, err)
		return
	}
	b.broadcast(event)
}

func (b *Broadcaster) broadcast(event *SerializedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = event
	for _, ch := range b.clients {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close disconnects every subscriber
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
	b.updateClientGauge()
}

func (b *Broadcaster) updateClientGauge() {
	if b.metrics != nil {
		b.metrics.TelemetryClients.Store(uint64(len(b.clients)))
	}
}
