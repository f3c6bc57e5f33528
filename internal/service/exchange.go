package service

import (
	"context"
	"fmt"

	"github.com/hollisb/patter/internal/domain"
	"github.com/hollisb/patter/internal/emit"
)

// TurnLimitError reports an exchange that hit the configured turn bound
// before the model stopped requesting tools.
type TurnLimitError struct {
	Limit int
}

func (e *TurnLimitError) Error() string {
	return fmt.Sprintf("turn limit reached after %d turns without completion", e.Limit)
}

// emitObserver forwards streaming notifications to the emitter. The first
// emit failure is remembered and silences everything after it; the exchange
// checks err once the turn returns.
type emitObserver struct {
	em        emit.Emitter
	sessionID string
	err       error
}

func (o *emitObserver) TextDelta(text string) {
	if o.err != nil {
		return
	}
	o.err = o.em.Emit(domain.NewDeltaEvent(o.sessionID, text))
}

func (o *emitObserver) ToolRequested(id, name string) {
	if o.err != nil {
		return
	}
	o.err = o.em.Emit(domain.NewToolRequestEvent(o.sessionID, id, name))
}

func (o *emitObserver) ToolCallFinalized(call domain.ToolCall) {
	if o.err != nil {
		return
	}
	o.err = o.em.Emit(domain.NewToolCallEvent(o.sessionID, call))
}

// RunExchange processes one user prompt to completion on the given session.
// A nil session starts a fresh one. Events stream to em in production order;
// on success the final two events are the session snapshot and done, and the
// updated session is returned. On failure a single error event terminates
// the stream and no snapshot is emitted.
//
// Emitting is part of the contract: if em rejects an event the exchange
// stops at the next suspension point without emitting anything further.
func (s *Service) RunExchange(ctx context.Context, sess *domain.Session, prompt string, em emit.Emitter) (*domain.Session, error) {
	if sess == nil {
		sess = domain.NewSession()
	} else if sess.ID == "" {
		sess.ID = domain.NewSessionID()
	}
	elog := log.WithField("session_id", sess.ID)

	userMsg := domain.Message{
		Role:    domain.RoleUser,
		Content: []domain.ContentBlock{domain.NewTextBlock(prompt)},
	}
	sess.Messages = append(sess.Messages, userMsg)
	if err := em.Emit(domain.NewMessageEvent(sess.ID, userMsg)); err != nil {
		return nil, err
	}

	manifests := s.registry.Manifests()
	maxTurns := s.config.MaxTurns
	turns := 0

	for {
		if maxTurns > 0 && turns >= maxTurns {
			limitErr := &TurnLimitError{Limit: maxTurns}
			s.failExchange(em, sess.ID, limitErr, turns)
			return nil, limitErr
		}
		if err := ctx.Err(); err != nil {
			elog.Warnf("exchange cancelled after %d turns: %v", turns, err)
			return nil, err
		}

		obs := &emitObserver{em: em, sessionID: sess.ID}
		assistantMsg, calls, err := s.llmClient.StreamTurn(ctx, sess.Messages, manifests, obs)
		if obs.err != nil {
			return nil, obs.err
		}
		if err != nil {
			s.failExchange(em, sess.ID, err, turns)
			return nil, err
		}
		turns++

		sess.Messages = append(sess.Messages, assistantMsg)
		if err := em.Emit(domain.NewMessageEvent(sess.ID, assistantMsg)); err != nil {
			return nil, err
		}

		if len(calls) == 0 {
			elog.Infof("exchange done after %d turns, %d messages", turns, len(sess.Messages))
			if err := em.Emit(domain.NewSessionEvent(*sess)); err != nil {
				return nil, err
			}
			if err := em.Emit(domain.NewDoneEvent(sess.ID)); err != nil {
				return nil, err
			}
			return sess, nil
		}

		// Sequential, in the order the turn finalized them. Tool state is
		// shared; parallel execution would make conversations irreproducible.
		for _, call := range calls {
			if err := ctx.Err(); err != nil {
				elog.Warnf("exchange cancelled during tool execution: %v", err)
				return nil, err
			}
			toolMsg, err := s.invokeTool(ctx, sess.ID, call, em)
			if err != nil {
				return nil, err
			}
			sess.Messages = append(sess.Messages, toolMsg)
			if err := em.Emit(domain.NewMessageEvent(sess.ID, toolMsg)); err != nil {
				return nil, err
			}
		}
	}
}

// failExchange emits the terminal error event. The snapshot is withheld on
// failure; turns counts the model turns that completed before the error.
func (s *Service) failExchange(em emit.Emitter, sessionID string, cause error, turns int) {
	log.WithField("session_id", sessionID).Errorf("exchange failed: %v", cause)
	if err := em.Emit(domain.NewErrorEvent(sessionID, cause.Error(), turns)); err != nil {
		log.Debugf("error event emit failed: %v", err)
	}
}
