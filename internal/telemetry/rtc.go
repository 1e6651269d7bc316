package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"

	"github.com/denis-giri/pdraw/internal/logger"
)

// Data channel protocols a viewer may request
const (
	ProtocolJSON     = "json"
	ProtocolProtobuf = "protobuf"
)

// ErrTooManyClients is returned when an offer arrives at the client limit
var ErrTooManyClients = errors.New("maximum clients reached")

// RTCConfig configures the WebRTC telemetry server
type RTCConfig struct {
	STUNServers []string
	MaxClients  int
	// IncludeLoopback gathers loopback candidates, for same-host viewers
	IncludeLoopback bool
}

// rtcClient is one viewer. peerConn is nil while the slot is reserved and
// the connection is still being created; it is guarded by clientsMu.
type rtcClient struct {
	id       string
	peerConn *webrtc.PeerConnection

	closeOnce sync.Once
	closeChan chan struct{}

	eventsSent    atomic.Uint64
	eventsDropped atomic.Uint64
}

func (c *rtcClient) close() {
	c.closeOnce.Do(func() { close(c.closeChan) })
}

// RTCServer answers WebRTC offers from HUD viewers and streams every latency
// event over the data channels they open. Channels whose protocol is
// "protobuf" receive binary wire-format messages, others JSON text.
type RTCServer struct {
	broadcaster *Broadcaster
	config      webrtc.Configuration
	maxClients  int
	api         *webrtc.API
	log         *logger.Module

	clientsMu sync.RWMutex
	clients   map[string]*rtcClient
}

// NewRTCServer creates a server fed by b
func NewRTCServer(b *Broadcaster, cfg RTCConfig) *RTCServer {
	iceServers := make([]webrtc.ICEServer, 0, len(cfg.STUNServers))
	for _, url := range cfg.STUNServers {
		if url == "" {
			continue
		}
		iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{url}})
	}

	settingsEngine := webrtc.SettingEngine{}
	settingsEngine.SetDTLSRetransmissionInterval(2 * time.Second)
	settingsEngine.SetNetworkTypes([]webrtc.NetworkType{
		webrtc.NetworkTypeUDP4,
		webrtc.NetworkTypeUDP6,
	})
	settingsEngine.SetIncludeLoopbackCandidate(cfg.IncludeLoopback)

	// Data channels only, no media codecs to register
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingsEngine))

	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = 10
	}

	return &RTCServer{
		broadcaster: b,
		config:      webrtc.Configuration{ICEServers: iceServers},
		maxClients:  maxClients,
		api:         api,
		log:         logger.For("WebRTC"),
		clients:     make(map[string]*rtcClient),
	}
}

// HandleOffer answers an SDP offer (JSON session description) carrying at
// least one data channel, and returns the answer with its ICE candidates.
func (s *RTCServer) HandleOffer(offerJSON []byte) ([]byte, error) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(offerJSON, &offer); err != nil {
		return nil, fmt.Errorf("failed to parse offer: %w", err)
	}

	client, err := s.reserve()
	if err != nil {
		return nil, err
	}

	peerConn, err := s.api.NewPeerConnection(s.config)
	if err != nil {
		s.RemoveClient(client.id)
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}
	if !s.bind(client, peerConn) {
		return nil, errors.New("client removed during negotiation")
	}

	peerConn.OnDataChannel(func(dc *webrtc.DataChannel) {
		s.log.Debug("Client %s opened data channel %q (protocol %q)", client.id, dc.Label(), dc.Protocol())
		dc.OnOpen(func() {
			go s.sendEvents(client, dc)
		})
	})

	peerConn.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.log.Debug("Client %s connection state: %s", client.id, state.String())

		if state == webrtc.PeerConnectionStateDisconnected ||
			state == webrtc.PeerConnectionStateFailed ||
			state == webrtc.PeerConnectionStateClosed {
			s.log.Info("Client %s connection lost (%s), removing...", client.id, state.String())
			s.RemoveClient(client.id)
		}
	})

	if err := peerConn.SetRemoteDescription(offer); err != nil {
		s.RemoveClient(client.id)
		return nil, fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := peerConn.CreateAnswer(nil)
	if err != nil {
		s.RemoveClient(client.id)
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(peerConn)
	if err := peerConn.SetLocalDescription(answer); err != nil {
		s.RemoveClient(client.id)
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}
	<-gatherComplete

	if !s.registered(client) {
		return nil, errors.New("client connection lost during negotiation")
	}
	s.log.Info("Client %s connected", client.id)

	localDesc := peerConn.LocalDescription()
	if localDesc == nil {
		s.RemoveClient(client.id)
		return nil, errors.New("no local description available")
	}

	answerJSON, err := json.Marshal(localDesc)
	if err != nil {
		s.RemoveClient(client.id)
		return nil, fmt.Errorf("failed to marshal answer: %w", err)
	}
	return answerJSON, nil
}

// reserve registers a client slot before any connection work, so concurrent
// offers cannot exceed the limit and early state changes find the client.
func (s *RTCServer) reserve() (*rtcClient, error) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if len(s.clients) >= s.maxClients {
		return nil, fmt.Errorf("%w (%d)", ErrTooManyClients, s.maxClients)
	}
	client := &rtcClient{
		id:        uuid.NewString(),
		closeChan: make(chan struct{}),
	}
	s.clients[client.id] = client
	return client, nil
}

// bind attaches pc to a reserved client. If the client was removed in the
// meantime pc is closed and bind reports false.
func (s *RTCServer) bind(client *rtcClient, pc *webrtc.PeerConnection) bool {
	s.clientsMu.Lock()
	ok := s.clients[client.id] == client
	if ok {
		client.peerConn = pc
	}
	s.clientsMu.Unlock()

	if !ok {
		_ = pc.Close()
	}
	return ok
}

func (s *RTCServer) registered(client *rtcClient) bool {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return s.clients[client.id] == client
}

// sendEvents forwards broadcaster events to one data channel until the
// client is removed or the channel fails.
func (s *RTCServer) sendEvents(client *rtcClient, dc *webrtc.DataChannel) {
	id, events := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(id)

	binary := dc.Protocol() == ProtocolProtobuf

	for {
		select {
		case <-client.closeChan:
			return

		case event, ok := <-events:
			if !ok {
				return
			}

			var err error
			if binary {
				err = dc.Send(event.ProtobufData)
			} else {
				err = dc.SendText(string(event.JSONData))
			}
			if err != nil {
				client.eventsDropped.Add(1)
				s.log.Debug("Send to client %s failed: %v", client.id, err)
				if dc.ReadyState() != webrtc.DataChannelStateOpen {
					return
				}
				continue
			}
			client.eventsSent.Add(1)
		}
	}
}

// RemoveClient disconnects a client by ID
func (s *RTCServer) RemoveClient(clientID string) {
	s.clientsMu.Lock()
	client, exists := s.clients[clientID]
	var peerConn *webrtc.PeerConnection
	if exists {
		delete(s.clients, clientID)
		peerConn = client.peerConn
	}
	s.clientsMu.Unlock()

	if !exists {
		return
	}

	// Closing fires the state callbacks, which call back into RemoveClient;
	// the lock must not be held here.
	client.close()
	if peerConn != nil {
		_ = peerConn.Close()
	}

	s.log.Info("Client %s disconnected (sent: %d, dropped: %d)",
		clientID, client.eventsSent.Load(), client.eventsDropped.Load())
}

// ClientCount returns the number of connected clients, including those
// still negotiating
func (s *RTCServer) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// ClientStats returns per-client counters
func (s *RTCServer) ClientStats() map[string]map[string]uint64 {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	stats := make(map[string]map[string]uint64, len(s.clients))
	for id, client := range s.clients {
		stats[id] = map[string]uint64{
			"events_sent":    client.eventsSent.Load(),
			"events_dropped": client.eventsDropped.Load(),
		}
	}
	return stats
}

// Close disconnects every client
func (s *RTCServer) Close() error {
	s.clientsMu.RLock()
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	s.clientsMu.RUnlock()

	for _, id := range ids {
		s.RemoveClient(id)
	}
	return nil
}
