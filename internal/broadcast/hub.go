package broadcast

import (
	"sync"

	"github.com/scythe504/impostor-backend/internal"
	"go.uber.org/zap"
)

// Frame is one outbound message.
type Frame = internal.Message[any]

// Sink is the write side of an observer connection. Only the subscriber's
// delivery loop calls WriteJSON, so implementations need not be safe for
// concurrent writers.
type Sink interface {
	WriteJSON(v any) error
}

// Hub fans events for one game out to its observers. Each observer owns a
// buffered queue drained by its own goroutine, so delivery order per
// observer equals publish order and Publish never blocks on the network.
type Hub struct {
	gameID string
	buffer int
	logger *zap.SugaredLogger

	mu     sync.Mutex
	seq    uint64
	subs   map[*Subscriber]struct{}
	closed bool
}

func NewHub(gameID string, buffer int, logger *zap.SugaredLogger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		gameID: gameID,
		buffer: buffer,
		logger: logger.Named("broadcast").With("game_id", gameID),
		subs:   make(map[*Subscriber]struct{}),
	}
}

// Subscriber is one observer session.
type Subscriber struct {
	ID          string
	Participant bool

	hub    *Hub
	sink   Sink
	queue  chan Frame
	done   chan struct{}
	closed bool // guarded by hub.mu
}

// Done is closed when the delivery loop has stopped.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Send queues a frame for this subscriber only. Private frames carry no
// sequence number.
func (s *Subscriber) Send(eventType string, requestID string, data any) bool {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.hub.enqueueLocked(s, Frame{Type: eventType, RequestID: requestID, Data: data})
}

// Close removes the subscriber from its hub.
func (s *Subscriber) Close() {
	s.hub.Unsubscribe(s)
}

func (s *Subscriber) deliver() {
	defer close(s.done)
	for frame := range s.queue {
		if err := s.sink.WriteJSON(frame); err != nil {
			s.hub.logger.Debugf("[Broadcast] subscriber=%s write failed: %v", s.ID, err)
			s.hub.Unsubscribe(s)
			return
		}
	}
}

// Seq returns the sequence number of the last published event.
func (h *Hub) Seq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// Subscribe registers sink and queues snapshot as its first frame. The
// snapshot function runs under the hub lock and receives the current
// sequence number, so no event can slip between it and the first
// incremental frame. Callers must also hold whatever lock guards the
// state the snapshot reads.
func (h *Hub) Subscribe(id string, sink Sink, participant bool, snapshot func(seq uint64) any) (*Subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, false
	}
	sub := &Subscriber{
		ID:          id,
		Participant: participant,
		hub:         h,
		sink:        sink,
		queue:       make(chan Frame, h.buffer),
		done:        make(chan struct{}),
	}
	h.subs[sub] = struct{}{}
	sub.queue <- Frame{Type: internal.EventGameState, Seq: h.seq, Data: snapshot(h.seq)}
	go sub.deliver()

	h.logger.Infof("[Subscribe] subscriber=%s participant=%v observers=%d", id, participant, len(h.subs))
	return sub, true
}

// Publish assigns the next sequence number to an event and queues it for
// every subscriber. A subscriber whose queue is full is dropped; it
// resynchronizes from a fresh snapshot on reconnect.
func (h *Hub) Publish(eventType string, data any) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return h.seq
	}
	h.seq++
	frame := Frame{Type: eventType, Seq: h.seq, Data: data}
	for sub := range h.subs {
		h.enqueueLocked(sub, frame)
	}
	return h.seq
}

func (h *Hub) enqueueLocked(sub *Subscriber, frame Frame) bool {
	if sub.closed {
		return false
	}
	select {
	case sub.queue <- frame:
		return true
	default:
		h.logger.Warnf("[Publish] subscriber=%s queue full at seq=%d, dropping", sub.ID, frame.Seq)
		h.removeLocked(sub)
		return false
	}
}

// SendParticipants queues a private frame for every participant session.
func (h *Hub) SendParticipants(eventType string, data any) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for sub := range h.subs {
		if sub.Participant && h.enqueueLocked(sub, Frame{Type: eventType, Data: data}) {
			sent++
		}
	}
	return sent
}

// Unsubscribe stops delivery to sub.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(h.subs, sub)
	close(sub.queue)
}

// ParticipantConnected reports whether a participant session is subscribed.
func (h *Hub) ParticipantConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.Participant {
			return true
		}
	}
	return false
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber. Frames still queued are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		// drain so the delivery loop exits without writing stale frames
		for len(sub.queue) > 0 {
			<-sub.queue
		}
		h.removeLocked(sub)
	}
	h.logger.Infof("[Close] hub closed at seq=%d", h.seq)
}
