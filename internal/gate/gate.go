package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/scythe504/impostor-backend/internal/errors"
)

// Kind identifies a phase-relevant slot.
type Kind string

const (
	KindWord  Kind = "word"
	KindVote  Kind = "vote"
	KindGuess Kind = "guess"
)

// Action is one interactive submission.
type Action struct {
	Kind          Kind   `json:"kind"`
	Text          string `json:"text,omitempty"`
	TargetID      string `json:"target_id,omitempty"`
	Justification string `json:"justification,omitempty"`
	Fallback      bool   `json:"fallback,omitempty"`
}

const (
	slotOpen int32 = iota
	slotFilled
	slotClosed
)

// ErrTimeout is returned by Wait when the slot stayed open past its deadline.
var ErrTimeout = errors.New("interactive slot timed out")

// Slot holds at most one action. The open to filled transition is a single
// compare-and-set, so a participant submission racing a fallback fill
// resolves to exactly one winner.
type Slot struct {
	Kind Kind
	Key  int

	state  atomic.Int32
	action Action
	filled chan struct{}
}

func newSlot(kind Kind, key int) *Slot {
	return &Slot{Kind: kind, Key: key, filled: make(chan struct{})}
}

func (s *Slot) fill(a Action) bool {
	if !s.state.CompareAndSwap(slotOpen, slotFilled) {
		return false
	}
	s.action = a
	close(s.filled)
	return true
}

func (s *Slot) close() {
	s.state.CompareAndSwap(slotOpen, slotClosed)
}

// Filled is closed once an action has been stored.
func (s *Slot) Filled() <-chan struct{} {
	return s.filled
}

// Action returns the stored action if the slot has been filled.
func (s *Slot) Action() (Action, bool) {
	select {
	case <-s.filled:
		return s.action, true
	default:
		return Action{}, false
	}
}

// Open reports whether the slot still accepts a submission.
func (s *Slot) Open() bool {
	return s.state.Load() == slotOpen
}

// Gate is the per-game synchronization point for the interactive participant.
type Gate struct {
	mu         sync.Mutex
	slots      map[Kind]*Slot
	debate     chan string
	debateOpen bool
	shutdown   bool
}

func New(debateBuffer int) *Gate {
	if debateBuffer < 1 {
		debateBuffer = 1
	}
	return &Gate{
		slots:  make(map[Kind]*Slot),
		debate: make(chan string, debateBuffer),
	}
}

// Open creates a fresh slot for kind, closing any earlier slot of that kind.
func (g *Gate) Open(kind Kind, key int) *Slot {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old := g.slots[kind]; old != nil {
		old.close()
	}
	slot := newSlot(kind, key)
	if g.shutdown {
		slot.close()
	}
	g.slots[kind] = slot
	return slot
}

// Close stops the slot of kind from accepting submissions.
func (g *Gate) Close(kind Kind) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if slot := g.slots[kind]; slot != nil {
		slot.close()
		delete(g.slots, kind)
	}
}

// Submit stores a participant action in its open slot.
func (g *Gate) Submit(a Action) error {
	g.mu.Lock()
	slot := g.slots[a.Kind]
	g.mu.Unlock()

	if slot == nil {
		return apperrors.ErrNoOpenSlot
	}
	if slot.fill(a) {
		return nil
	}
	if slot.state.Load() == slotFilled {
		return apperrors.ErrDuplicateAction
	}
	return apperrors.ErrNoOpenSlot
}

// Fill stores a fallback action if the slot is still open.
func (g *Gate) Fill(slot *Slot, a Action) bool {
	a.Fallback = true
	return slot.fill(a)
}

// Wait blocks until slot is filled, ctx is done or timeout elapses.
// A zero timeout waits without a deadline.
func (g *Gate) Wait(ctx context.Context, slot *Slot, timeout time.Duration) (Action, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-slot.Filled():
		a, _ := slot.Action()
		return a, nil
	case <-ctx.Done():
		return Action{}, ctx.Err()
	case <-expired:
		return Action{}, ErrTimeout
	}
}

// Pending lists the kinds with an open slot.
func (g *Gate) Pending() []Kind {
	g.mu.Lock()
	defer g.mu.Unlock()

	kinds := make([]Kind, 0, len(g.slots))
	for kind, slot := range g.slots {
		if slot.Open() {
			kinds = append(kinds, kind)
		}
	}
	if g.debateOpen {
		kinds = append(kinds, "debate")
	}
	return kinds
}

// OpenDebate starts accepting debate messages.
func (g *Gate) OpenDebate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.debateOpen = !g.shutdown
}

// CloseDebate stops accepting debate messages. Already queued messages
// remain readable from Debate.
func (g *Gate) CloseDebate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.debateOpen = false
}

// SubmitDebate queues a debate message from the participant.
func (g *Gate) SubmitDebate(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.debateOpen {
		return apperrors.ErrNoOpenSlot
	}
	select {
	case g.debate <- text:
		return nil
	default:
		return apperrors.New(apperrors.CodeNoOpenSlot, "debate queue is full")
	}
}

// Debate is the queue of participant debate messages in arrival order.
func (g *Gate) Debate() <-chan string {
	return g.debate
}

// Shutdown closes every slot. Later submissions fail.
func (g *Gate) Shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.shutdown = true
	g.debateOpen = false
	for kind, slot := range g.slots {
		slot.close()
		delete(g.slots, kind)
	}
}
