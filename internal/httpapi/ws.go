package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/speakstream/internal/assistant"
	"github.com/ent0n29/speakstream/internal/protocol"
	"github.com/ent0n29/speakstream/internal/reliability"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
)

// handleChatWS streams replies over a websocket. Each client_chat starts a
// turn that emits text deltas followed by a turn end; a newer turn or a
// client_control stop ends the older one as superseded.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 256)
	send := func(msg any) bool {
		select {
		case <-ctx.Done():
			return false
		case outbound <- msg:
			return true
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					s.logger.Debugw("websocket write failed", "error", err)
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	var turns sync.WaitGroup
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			errEvent := protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			}
			select {
			case outbound <- errEvent:
			default:
				// Keep websocket writes single-threaded; drop if outbound queue is saturated.
			}
			continue
		}

		switch msg := parsed.(type) {
		case protocol.ClientChat:
			turns.Add(1)
			go func() {
				defer turns.Done()
				s.runTurn(ctx, msg.Message, send)
			}()
		case protocol.ClientControl:
			s.assistant.StopAll()
		}
	}

	cancel()
	turns.Wait()
	<-writerDone
}

func (s *Server) runTurn(ctx context.Context, message string, send func(any) bool) {
	turnID := uuid.NewString()

	em, err := s.assistant.Ask(ctx, message, assistant.SourceChat)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		send(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			Code:      "reply_failed",
			Source:    "assistant",
			Retryable: reliability.IsRetryable(err),
			Detail:    err.Error(),
		})
		send(protocol.AssistantTurnEnd{Type: protocol.TypeAssistantTurnEnd, TurnID: turnID, Reason: protocol.ReasonError})
		return
	}

	for tok := range em.All(ctx) {
		if !send(protocol.AssistantTextDelta{Type: protocol.TypeAssistantTextDelta, TurnID: turnID, TextDelta: tok}) {
			return
		}
	}
	reason := protocol.ReasonCompleted
	if !em.Exhausted() {
		reason = protocol.ReasonSuperseded
	}
	send(protocol.AssistantTurnEnd{Type: protocol.TypeAssistantTurnEnd, TurnID: turnID, Reason: reason})
}
