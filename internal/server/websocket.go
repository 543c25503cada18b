package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
	"github.com/aparetext/aparetext/internal/usecase"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsWriteWait  = 10 * time.Second
	wsMaxMessage = 1 << 20
	wsSearchMax  = 20
)

// Message types on the extension bridge.
const (
	msgPing          = "ping"
	msgPong          = "pong"
	msgSearch        = "search"
	msgSearchResults = "search_results"
	msgExpand        = "expand"
	msgExpandResult  = "expand_result"
	msgGetSnippet    = "get_snippet"
	msgSnippetData   = "snippet_data"
	msgError         = "error"
)

type wsRequest struct {
	Type      string         `json:"type"`
	Query     string         `json:"query,omitempty"`
	SnippetID string         `json:"snippet_id,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
	Domain    string         `json:"domain,omitempty"`
}

type wsResponse struct {
	Type     string            `json:"type"`
	Snippets []snippet.Snippet `json:"snippets,omitempty"`
	Snippet  *snippet.Snippet  `json:"snippet,omitempty"`
	*usecase.ExpandResult
	Error string `json:"error,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts requests without an Origin header, same-host origins,
// browser extension origins and anything listed in server.allowed_origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if originAllowed(s.cfg.AllowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "chrome-extension", "moz-extension", "safari-web-extension":
		return true
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	logger := s.logger.With("conn_id", xid.New().String())
	logger.Info("websocket connected", "remote", r.RemoteAddr)
	defer func() {
		_ = conn.Close()
		logger.Info("websocket disconnected")
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go keepAlive(ctx, conn)

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		resp := s.dispatch(ctx, logger, data)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(resp); err != nil {
			logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}

// keepAlive pings until ctx ends. WriteControl may run concurrently with
// the writer in the read loop.
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatch(ctx context.Context, logger *slog.Logger, data []byte) wsResponse {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return wsError("invalid message")
	}

	switch req.Type {
	case msgPing:
		return wsResponse{Type: msgPong}

	case msgSearch:
		results, err := s.snippets.Search(ctx, services.SearchOptions{Query: req.Query})
		if err != nil {
			logger.Error("websocket search failed", "error", err)
			return wsError("search failed")
		}
		if len(results) > wsSearchMax {
			results = results[:wsSearchMax]
		}
		return wsResponse{Type: msgSearchResults, Snippets: results}

	case msgExpand:
		result, err := s.expander.ExpandByID(ctx, req.SnippetID, usecase.ExpandInput{
			Values:       req.Variables,
			Source:       snippet.SourceExtension,
			TargetDomain: req.Domain,
		})
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return wsError("snippet not found")
			}
			logger.Error("websocket expand failed", "snippet_id", req.SnippetID, "error", err)
			return wsError("expansion failed")
		}
		return wsResponse{Type: msgExpandResult, ExpandResult: result}

	case msgGetSnippet:
		found, err := s.snippets.Get(ctx, req.SnippetID)
		if err != nil {
			logger.Error("websocket get failed", "snippet_id", req.SnippetID, "error", err)
			return wsError("lookup failed")
		}
		if found == nil {
			return wsError("snippet not found")
		}
		return wsResponse{Type: msgSnippetData, Snippet: found}

	default:
		return wsError("unknown message type: " + req.Type)
	}
}

func wsError(message string) wsResponse {
	return wsResponse{Type: msgError, Error: message}
}
