package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hanq-games/baduk-server/internal/obslog"
	"github.com/hanq-games/baduk-server/internal/render"
	"github.com/hanq-games/baduk-server/internal/store"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// API exposes the manager over HTTP plus a per-game websocket that
// streams viewer-scoped snapshots.
type API struct {
	mgr   *Manager
	goban *render.Goban

	// wsPushInterval paces snapshot pushes to connected sockets.
	wsPushInterval time.Duration
}

func NewAPI(mgr *Manager) *API {
	return &API{mgr: mgr, goban: render.NewGoban(), wsPushInterval: 500 * time.Millisecond}
}

func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /games", a.handleCreate)
	mux.HandleFunc("GET /games/{id}", a.handleSnapshot)
	mux.HandleFunc("POST /games/{id}/actions", a.handleAction)
	mux.HandleFunc("GET /games/{id}/image", a.handleImage)
	mux.HandleFunc("GET /games/{id}/ws", a.handleWS)
	mux.HandleFunc("GET /users/{id}/games", a.handleUserGames)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

type errorBody struct {
	Error  string `json:"error"`
	Reject bool   `json:"reject,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Warn("response encode failed", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto status codes: rejections are
// the client's fault (422), unknown games are 404, the rest are 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case gamedto.IsReject(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Reject: true})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "game not found"})
	default:
		obslog.L().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func viewerID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("user_id")
}

func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body", Reject: true})
		return
	}
	snap, err := a.mgr.CreateGame(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := a.mgr.Snapshot(r.Context(), r.PathValue("id"), viewerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleImage(w http.ResponseWriter, r *http.Request) {
	snap, err := a.mgr.Snapshot(r.Context(), r.PathValue("id"), viewerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	pngBytes, err := a.goban.RenderPNG(snap)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pngBytes)
}

func (a *API) handleUserGames(w http.ResponseWriter, r *http.Request) {
	ids, err := a.mgr.GamesOf(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"games": ids})
}

func (a *API) handleAction(w http.ResponseWriter, r *http.Request) {
	user := viewerID(r)
	if user == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing user id", Reject: true})
		return
	}
	var act gamedto.Action
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed action", Reject: true})
		return
	}
	reply, err := a.mgr.Dispatch(r.Context(), r.PathValue("id"), user, act)
	if err != nil {
		writeError(w, err)
		return
	}
	if reply == nil {
		reply = &gamedto.ActionReply{}
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleWS upgrades to a snapshot stream. A seated player's presence is
// tied to the socket: connect clears their disconnection grace window,
// an abnormal close starts it.
func (a *API) handleWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	user := viewerID(r)

	if _, err := a.mgr.Snapshot(r.Context(), gameID, user); err != nil {
		writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("websocket accept failed",
			zap.String("game_id", gameID), zap.Error(err))
		return
	}

	if user != "" {
		_ = a.mgr.MarkReconnected(context.Background(), gameID, user)
	}

	clean := a.streamSnapshots(r.Context(), conn, gameID, user)

	if user != "" && !clean {
		_ = a.mgr.MarkDisconnected(context.Background(), gameID, user)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

// streamSnapshots pushes the viewer's snapshot whenever it changes, until
// the peer goes away. The return value is true when the stream ended for
// a benign reason (game over, normal close, server shutdown).
func (a *API) streamSnapshots(ctx context.Context, conn *websocket.Conn, gameID, user string) (clean bool) {
	// Drain inbound frames so pings are answered and a peer close is
	// noticed promptly.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	t := time.NewTicker(a.wsPushInterval)
	defer t.Stop()

	var lastSent []byte
	for {
		select {
		case <-ctx.Done():
			return true
		case <-readDone:
			return false
		case <-t.C:
		}

		snap, err := a.mgr.Snapshot(ctx, gameID, user)
		if err != nil {
			return errors.Is(err, store.ErrNotFound)
		}
		payload, err := json.Marshal(snap)
		if err != nil {
			obslog.L().Error("snapshot encode failed",
				zap.String("game_id", gameID), zap.Error(err))
			return false
		}
		if string(payload) == string(lastSent) {
			continue
		}

		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = wsjson.Write(writeCtx, conn, json.RawMessage(payload))
		cancel()
		if err != nil {
			return false
		}
		lastSent = payload

		if snap.Result != nil {
			return true
		}
	}
}
