package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/scythe504/impostor-backend/internal"
	apperrors "github.com/scythe504/impostor-backend/internal/errors"
	"github.com/scythe504/impostor-backend/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096

	roleObserver    = "observer"
	roleParticipant = "participant"
)

// connSink adapts a websocket connection to broadcast.Sink.
type connSink struct {
	conn *websocket.Conn
}

func (c connSink) WriteJSON(v any) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

// HandleWebSocket attaches an observer or the participant session to a game.
// The first frame is always a game_state snapshot. A finished game that is
// only in the archive gets its final snapshot and the socket is closed.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	id := mux.Vars(r)["id"]

	role := r.URL.Query().Get("role")
	if role == "" {
		role = roleObserver
	}
	if role != roleObserver && role != roleParticipant {
		s.respondError(w, startTime, apperrors.WithMetadata(apperrors.CodeInvalidAction, "unknown role",
			map[string]string{"role": role}))
		return
	}

	g, err := s.registry.Get(id)
	if err != nil {
		state, lookupErr := s.registry.Lookup(id)
		if lookupErr != nil {
			s.respondError(w, startTime, lookupErr)
			return
		}
		s.serveArchived(w, r, state)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("[HandleWebSocket] game=%s upgrade failed: %v", id, err)
		return
	}
	defer conn.Close()

	sub, err := g.Subscribe(uuid.NewString(), connSink{conn: conn}, role == roleParticipant)
	if err != nil {
		_ = connSink{conn: conn}.WriteJSON(internal.Message[any]{Type: internal.EventError, Data: errorData(err)})
		return
	}
	defer sub.Close()
	s.logger.Infof("[HandleWebSocket] game=%s subscriber=%s role=%s connected", id, sub.ID, role)

	// the hub drops slow or closed subscribers; take the socket down with them
	go func() {
		<-sub.Done()
		_ = conn.Close()
	}()
	go s.ping(conn, sub.Done())

	s.readLoop(conn, g, sub.ID, role == roleParticipant, func(eventType, requestID string, data any) {
		sub.Send(eventType, requestID, data)
	})
	s.logger.Infof("[HandleWebSocket] game=%s subscriber=%s disconnected", id, sub.ID)
}

func (s *Server) serveArchived(w http.ResponseWriter, r *http.Request, state internal.GameStateData) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("[HandleWebSocket] game=%s upgrade failed: %v", state.GameID, err)
		return
	}
	defer conn.Close()

	sink := connSink{conn: conn}
	if err := sink.WriteJSON(internal.Message[any]{Type: internal.EventGameState, Seq: state.Seq, Data: state}); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game over"),
		time.Now().Add(writeWait))
}

func (s *Server) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readLoop processes inbound frames until the connection fails. Replies go
// through reply so they share the subscriber's ordered queue.
func (s *Server) readLoop(conn *websocket.Conn, g *game.Game, subscriberID string, participant bool, reply func(eventType, requestID string, data any)) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debugf("[ReadLoop] game=%s subscriber=%s read error: %v", g.ID(), subscriberID, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg internal.Message[json.RawMessage]
		if err := json.Unmarshal(raw, &msg); err != nil {
			reply(internal.EventError, "", errorData(apperrors.Wrap(apperrors.CodeInvalidAction, "malformed frame", err)))
			continue
		}
		s.logger.Debugf("[ReadLoop] game=%s subscriber=%s type=%s", g.ID(), subscriberID, msg.Type)

		if !participant {
			reply(internal.EventError, msg.RequestID, errorData(
				apperrors.New(apperrors.CodeNotEligible, "observers cannot act")))
			continue
		}
		if err := s.dispatch(g, msg); err != nil {
			reply(internal.EventError, msg.RequestID, errorData(err))
			continue
		}
		reply(internal.EventAck, msg.RequestID, nil)
	}
}

func (s *Server) dispatch(g *game.Game, msg internal.Message[json.RawMessage]) error {
	switch msg.Type {
	case internal.ActionStartGame:
		return s.registry.Start(g.ID())

	case internal.ActionCastVote:
		var vote internal.CastVoteData
		if err := json.Unmarshal(msg.Data, &vote); err != nil {
			return apperrors.Wrap(apperrors.CodeInvalidAction, "malformed vote", err)
		}
		return g.Submit(game.Action{Type: msg.Type, TargetID: vote.TargetID, Justification: vote.Justification})

	case internal.ActionPlayerWord, internal.ActionDebateMessage, internal.ActionImpostorGuess:
		text, err := decodeText(msg.Data)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInvalidAction, "malformed "+msg.Type, err)
		}
		return g.Submit(game.Action{Type: msg.Type, Text: text})
	}
	return apperrors.WithMetadata(apperrors.CodeInvalidAction, "unknown action",
		map[string]string{"type": msg.Type})
}

// decodeText accepts either a bare JSON string or {"text": "..."}.
func decodeText(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", errors.New("missing data")
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return text, nil
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}
	return payload.Text, nil
}
