package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/codeedge/internal/convlog"
	"github.com/ashureev/codeedge/internal/domain"
	"github.com/ashureev/codeedge/internal/llm"
	"github.com/ashureev/codeedge/internal/tutor"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
)

// Tutor answers a question, streaming through onChunk when it is non-nil.
type Tutor interface {
	Stream(ctx context.Context, q tutor.Question, onChunk llm.ChunkFunc) string
}

// History reads and extends a learner's conversation.
type History interface {
	History(ctx context.Context, userID string) []domain.ConversationEntry
	Append(ctx context.Context, userID, question, response string) error
}

// TutorHandler serves /ai and its websocket variant.
type TutorHandler struct {
	tutor          Tutor
	history        History
	log            convlog.Logger
	originPatterns []string
}

// NewTutorHandler creates a tutor handler. allowedOrigins uses the same
// entries as the CORS middleware.
func NewTutorHandler(t Tutor, history History, log convlog.Logger, allowedOrigins []string) *TutorHandler {
	if log == nil {
		log = convlog.Noop{}
	}
	return &TutorHandler{
		tutor:          t,
		history:        history,
		log:            log,
		originPatterns: originPatterns(allowedOrigins),
	}
}

// RegisterRoutes registers tutor routes.
func (h *TutorHandler) RegisterRoutes(r chi.Router) {
	r.Post("/ai", h.Ask)
	r.Get("/ws/tutor", h.ServeWebSocket)
}

type askRequest struct {
	Problem  string `json:"problem"`
	Code     string `json:"code"`
	Question string `json:"question"`
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
}

func (req askRequest) question(history []domain.ConversationEntry) tutor.Question {
	return tutor.Question{
		Kind:     orDefault(req.Type, "general"),
		Problem:  req.Problem,
		Code:     req.Code,
		Question: req.Question,
		History:  history,
	}
}

// Ask handles POST /ai.
func (h *TutorHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeBody(r, &req); err != nil {
		Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	userID := orDefault(req.UserID, defaultUserID)
	response, err := h.answer(ctx, userID, req, convlog.ChannelHTTP, nil)
	if err != nil {
		Failure(w, http.StatusInternalServerError, err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"response": response,
	})
}

// answer runs one tutor exchange and records it. The reply is kept in
// history even when it carries an upstream error message.
func (h *TutorHandler) answer(ctx context.Context, userID string, req askRequest, channel string, onChunk llm.ChunkFunc) (string, error) {
	h.logEvent(userID, channel, "outbound", "tutor_question", req.Question, req.Type)

	history := h.history.History(ctx, userID)
	response := h.tutor.Stream(ctx, req.question(history), onChunk)

	h.logEvent(userID, channel, "inbound", "tutor_answer", response, req.Type)

	if err := h.history.Append(ctx, userID, req.Question, response); err != nil {
		slog.Error("Failed to save conversation history", "user_id", userID, "error", err)
		return "", err
	}
	return response, nil
}

func (h *TutorHandler) logEvent(userID, channel, direction, eventType, content, kind string) {
	h.log.Log(convlog.Event{
		UserID:     userID,
		Channel:    channel,
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Meta:       map[string]any{"type": orDefault(kind, "general")},
	})
}

// wsFrame is sent to websocket clients: "chunk" frames while the answer
// streams, then one "done" or "error" frame per question.
type wsFrame struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	Response string `json:"response,omitempty"`
	Success  *bool  `json:"success,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ServeWebSocket handles GET /ws/tutor. Each text frame is a JSON object
// shaped like the /ai body.
func (h *TutorHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx := r.Context()
	for {
		var req askRequest
		if err := wsjson.Read(ctx, ws, &req); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket read ended", "error", err)
			}
			return
		}

		userID := orDefault(req.UserID, defaultUserID)
		onChunk := func(ctx context.Context, chunk string) error {
			return wsjson.Write(ctx, ws, wsFrame{Type: "chunk", Content: chunk})
		}

		response, err := h.answer(ctx, userID, req, convlog.ChannelWebSocket, onChunk)
		frame := wsFrame{Type: "done", Response: response, Success: ptr(true)}
		if err != nil {
			frame = wsFrame{Type: "error", Error: err.Error(), Success: ptr(false)}
		}
		if err := wsjson.Write(ctx, ws, frame); err != nil {
			slog.Debug("WebSocket write failed", "user_id", userID, "error", err)
			return
		}
	}
}

// originPatterns converts CORS origins into host patterns for the
// websocket origin check.
func originPatterns(allowedOrigins []string) []string {
	patterns := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		patterns = append(patterns, strings.TrimSuffix(o, "/"))
	}
	return patterns
}

func ptr[T any](v T) *T {
	return &v
}
