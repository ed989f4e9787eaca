package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"case-trainer-service/internal/app"
	"case-trainer-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.TrainerService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.TrainerService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	CaseID string `json:"caseId"`
}

type actionPayload struct {
	Section domain.Section `json:"section"`
	Key     string         `json:"key"`
	Dose    string         `json:"dose"`
}

type diagnosisPayload struct {
	Input string `json:"input"`
}

type hostPayload struct {
	Action domain.HostAction `json:"action"`
	CaseID string            `json:"caseId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// connection identifies who is on the other end of a socket.
type connection struct {
	sessionID string
	userID    string
	// host comes from the role=host query param set by the host dashboard. Like userId it is
	// trusted as sent; the endpoint must sit behind whatever authenticates that dashboard.
	host bool
}

// ServeWS upgrades HTTP requests to websockets and wires them into the trainer use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	conn := connection{
		sessionID: q.Get("sessionId"),
		userID:    q.Get("userId"),
		host:      q.Get("role") == "host",
	}
	displayName := q.Get("name")
	if conn.sessionID == "" || conn.userID == "" || displayName == "" {
		http.Error(w, "missing sessionId, userId, or name", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	ctx := r.Context()
	joined, err := h.service.Join(ctx, conn.sessionID, conn.userID, displayName)
	if err != nil {
		_ = ws.WriteJSON(errorMessage(err))
		return
	}

	updates, cancel, err := h.service.Subscribe(ctx, conn.sessionID)
	if err != nil {
		_ = ws.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()
	defer h.service.Leave(ctx, conn.sessionID, conn.userID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine: gorilla connections support one concurrent writer only.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := ws.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "session", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joined}

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		send <- h.handle(ctx, conn, inbound)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle runs one inbound message and returns the reply for the sender. Session-wide changes
// reach every connection through the subscription.
func (h *WSHandler) handle(ctx context.Context, conn connection, inbound inboundMessage) outboundMessage[any] {
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return invalidPayload("start")
		}
		info, err := h.service.StartAttempt(ctx, conn.sessionID, conn.userID, payload.CaseID)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "attempt", Payload: info}

	case "action":
		var payload actionPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return invalidPayload("action")
		}
		outcome, err := h.service.RecordAction(ctx, conn.sessionID, conn.userID, app.ActionRequest{
			Section: payload.Section,
			Key:     payload.Key,
			Dose:    payload.Dose,
		})
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "actionResult", Payload: outcome}

	case "diagnosis":
		var payload diagnosisPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return invalidPayload("diagnosis")
		}
		outcome, err := h.service.SubmitDiagnosis(ctx, conn.sessionID, conn.userID, payload.Input)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "evaluation", Payload: outcome}

	case "reset":
		breakdown, err := h.service.ResetAttempt(ctx, conn.sessionID, conn.userID)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "reset", Payload: breakdown}

	case "host":
		if !conn.host {
			return errorMessage(domain.ErrNotHost)
		}
		var payload hostPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return invalidPayload("host")
		}
		snap, err := h.service.Host(ctx, conn.sessionID, payload.Action, payload.CaseID)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "session", Payload: snap}

	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

// decodePayload accepts a missing payload for messages whose fields are all optional.
func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func invalidPayload(kind string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid " + kind + " payload"}}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
