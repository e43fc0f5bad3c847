package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/scythe504/impostor-backend/internal"
	apperrors "github.com/scythe504/impostor-backend/internal/errors"
	"github.com/scythe504/impostor-backend/internal/export"
	"github.com/scythe504/impostor-backend/internal/roster"
)

const qrSize = 256

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/players", s.PlayersHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/leaderboard", s.LeaderboardHandler).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/games", s.CreateGameHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/games", s.ListGamesHandler).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", s.GetGameHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/games/{id}", s.CancelGameHandler).Methods(http.MethodDelete)
	api.HandleFunc("/games/{id}/start", s.StartGameHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/games/{id}/export", s.ExportHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/games/{id}/autosave", s.AutosaveHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/games/{id}/qr", s.QRHandler).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/ws/{id}", s.HandleWebSocket)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// RESPONSES
// =============================================================================

func (s *Server) respond(w http.ResponseWriter, startTime int64, status int, data any) {
	endTime := time.Now().UnixMilli()
	resp := internal.Response{
		StatusCode:    status,
		RespStartTime: startTime,
		RespEndTime:   endTime,
		NetRespTime:   endTime - startTime,
		Data:          data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Errorf("[Respond] encoding response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, startTime int64, err error) {
	code := apperrors.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		s.logger.Errorf("[Respond] %v", err)
	}
	s.respond(w, startTime, status, errorData(err))
}

func errorData(err error) internal.ErrorData {
	code := apperrors.CodeOf(err)
	return internal.ErrorData{
		Code:      string(code),
		Message:   err.Error(),
		Retryable: code.Retryable(),
	}
}

func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeGameNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidRoster, apperrors.CodeInvalidAction, apperrors.CodeInvalidTarget:
		return http.StatusBadRequest
	case apperrors.CodeWrongPhase, apperrors.CodeDuplicateAction, apperrors.CodeNoOpenSlot, apperrors.CodeNotEligible:
		return http.StatusConflict
	case apperrors.CodeProviderFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	s.respond(w, startTime, http.StatusOK, map[string]any{
		"status":       "ok",
		"active_games": s.registry.Count(),
	})
}

func (s *Server) PlayersHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	s.respond(w, startTime, http.StatusOK, roster.Catalog)
}

func (s *Server) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	var cfg internal.GameConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, startTime, apperrors.Wrap(apperrors.CodeInvalidRoster, "malformed game config", err))
		return
	}
	g, err := s.registry.Create(cfg)
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}
	s.logger.Infof("[CreateGame] game=%s mode=%s", g.ID(), cfg.Mode)
	s.respond(w, startTime, http.StatusCreated, g.Snapshot())
}

func (s *Server) ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	s.respond(w, startTime, http.StatusOK, s.registry.List())
}

func (s *Server) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	state, err := s.registry.Lookup(mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}
	s.respond(w, startTime, http.StatusOK, state)
}

func (s *Server) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	id := mux.Vars(r)["id"]
	if err := s.registry.Start(id); err != nil {
		s.respondError(w, startTime, err)
		return
	}
	state, err := s.registry.Lookup(id)
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}
	s.respond(w, startTime, http.StatusAccepted, state)
}

func (s *Server) CancelGameHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	id := mux.Vars(r)["id"]
	if err := s.registry.Cancel(id); err != nil {
		s.respondError(w, startTime, err)
		return
	}
	s.respond(w, startTime, http.StatusOK, map[string]string{"game_id": id})
}

func (s *Server) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	entries, err := s.registry.Leaderboard(r.Context())
	if err != nil {
		s.respondError(w, startTime, apperrors.Wrap(apperrors.CodeInternal, "read leaderboard", err))
		return
	}
	s.respond(w, startTime, http.StatusOK, entries)
}

func (s *Server) ExportHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	state, err := s.registry.Lookup(mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}
	page, err := export.HTML(state)
	if errors.Is(err, export.ErrNotFinished) {
		s.respondError(w, startTime, apperrors.Wrap(apperrors.CodeWrongPhase, "transcript unavailable", err))
		return
	}
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) AutosaveHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	state, err := s.registry.Lookup(mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}
	doc, err := export.JSON(state)
	if err != nil {
		s.respondError(w, startTime, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="partida_`+state.GameID+`.json"`)
	_, _ = w.Write(doc)
}

func (s *Server) QRHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	id := mux.Vars(r)["id"]
	if _, err := s.registry.Lookup(id); err != nil {
		s.respondError(w, startTime, err)
		return
	}
	png, err := qrcode.Encode(s.observerURL(id), qrcode.Medium, qrSize)
	if err != nil {
		s.respondError(w, startTime, apperrors.Wrap(apperrors.CodeInternal, "encode qr", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// observerURL is the websocket address observers use to follow game id.
func (s *Server) observerURL(id string) string {
	base := strings.TrimSuffix(s.publicURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/" + id + "?role=observer"
}
