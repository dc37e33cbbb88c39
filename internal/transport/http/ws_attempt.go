package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// AttemptWSHandler drives the countdown for an in-progress attempt over a
// websocket. The server owns the clock: it sends the remaining seconds every
// tick and force-submits the buffered answers when the countdown reaches zero.
// A manual submit cancels the ticker; if both fire together, the session store
// and the attempt store's uniqueness constraint guarantee a single submission.
type AttemptWSHandler struct {
	attempts *app.AttemptService
	upgrader websocket.Upgrader
	// tick is overridable in tests to avoid waiting out real seconds.
	tick time.Duration
}

func NewAttemptWSHandler(attempts *app.AttemptService) *AttemptWSHandler {
	return &AttemptWSHandler{
		attempts: attempts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tick: time.Second,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type savePayload struct {
	Answers domain.AnswerSet `json:"answers"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type startedPayload struct {
	Quiz      domain.RedactedQuiz `json:"quiz"`
	Deadline  time.Time           `json:"deadline"`
	Remaining int                 `json:"remaining"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs one attempt session to completion.
func (h *AttemptWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	quiz, session, err := h.attempts.Start(r.Context(), quizID, actor.ID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: wsErrorMessage(err)}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	// Single writer goroutine; everything that talks to the client goes
	// through the send channel.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// The countdown. When it hits zero the session's buffered answers are
	// force-submitted; losing the session race to a manual submit is not an
	// error, it means the submission already happened. The ticker works from
	// its own copy of the session: the deadline is immutable after Start, and
	// the read loop reassigns the shared variable on every save.
	go func(countdown app.AttemptSession) {
		defer close(tickerDone)
		ticker := time.NewTicker(h.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				remaining := countdown.Remaining(time.Now())
				select {
				case send <- outboundMessage[any]{Type: "tick", Payload: tickPayload{Remaining: remaining}}:
				case <-closeSignals:
					return
				}
				if remaining > 0 {
					continue
				}
				result, err := h.attempts.SubmitExpired(r.Context(), quizID, actor.ID)
				if err != nil {
					if !errors.Is(err, domain.ErrSessionNotFound) && !errors.Is(err, domain.ErrDuplicateAttempt) {
						log.Printf("forced submit for quiz %s student %s: %v", quizID, actor.ID, err)
					}
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "submitted", Payload: result}:
				case <-closeSignals:
				}
				// Break the reader loop so the connection winds down.
				_ = conn.SetReadDeadline(time.Now())
				return
			case <-closeSignals:
				return
			}
		}
	}(session)

	send <- outboundMessage[any]{Type: "started", Payload: startedPayload{
		Quiz:      quiz,
		Deadline:  session.Deadline,
		Remaining: session.Remaining(time.Now()),
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "save":
			var payload savePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid save payload"}}
				continue
			}
			updated, err := h.attempts.SaveProgress(r.Context(), quizID, actor.ID, payload.Answers)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: wsErrorMessage(err)}}
				continue
			}
			session = updated
		case "submit":
			var payload savePayload
			answers := session.Answers
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err == nil && payload.Answers != nil {
					answers = payload.Answers
				}
			}
			result, err := h.attempts.Submit(r.Context(), quizID, actor.ID, answers, session.TimeTaken(time.Now()))
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: wsErrorMessage(err)}}
				continue
			}
			send <- outboundMessage[any]{Type: "submitted", Payload: result}
			goto shutdown
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

shutdown:
	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

// wsErrorMessage keeps internal error text off the wire.
func wsErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		return "quiz not found"
	case errors.Is(err, domain.ErrDuplicateAttempt):
		return "attempt already submitted"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "attempt session not found"
	case errors.Is(err, domain.ErrValidation):
		return err.Error()
	default:
		return "server error"
	}
}
