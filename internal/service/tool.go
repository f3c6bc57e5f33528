package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hollisb/patter/internal/domain"
	"github.com/hollisb/patter/internal/emit"
	"github.com/hollisb/patter/internal/policy"
	"github.com/hollisb/patter/internal/tools"
)

// invokeTool executes one finalized tool call: policy gate, execution,
// result event, and the tool message for the conversation. Tool failures
// are conversational content, never an error return; only an emit failure
// comes back as an error.
func (s *Service) invokeTool(ctx context.Context, sessionID string, call domain.ToolCall, em emit.Emitter) (domain.Message, error) {
	result := s.executeCall(ctx, call)
	rendered := result.Render()

	tlog := log.WithField("tool", call.Name)
	if result.OK {
		tlog.Infof("tool call %s succeeded", call.ID)
	} else {
		tlog.Warnf("tool call %s failed: %s", call.ID, result.Message)
	}

	if err := em.Emit(domain.NewToolResultEvent(sessionID, call.ID, call.Name, result.OK, rendered)); err != nil {
		return domain.Message{}, err
	}

	return domain.Message{
		Role:    domain.RoleTool,
		Content: []domain.ContentBlock{domain.NewToolResultBlock(call.ID, rendered)},
	}, nil
}

// executeCall gates the call through the policy engine, then runs it.
func (s *Service) executeCall(ctx context.Context, call domain.ToolCall) tools.Result {
	if s.policyEngine != nil {
		policyInput := map[string]any{
			"tool_name": call.Name,
			"args":      map[string]any{},
		}
		if len(call.Input) > 0 {
			var args map[string]any
			if err := json.Unmarshal(call.Input, &args); err == nil && args != nil {
				policyInput["args"] = args
			}
		}

		decision, reason, err := s.policyEngine.Evaluate(ctx, policyInput)
		if err != nil {
			return tools.Failure(fmt.Sprintf("policy evaluation failed: %v", err))
		}
		if decision != policy.DecisionAllow {
			msg := "blocked by policy"
			if reason != "" {
				msg += ": " + reason
			}
			return tools.Failure(msg, tools.TraceStep{Title: "policy decision", Detail: decision})
		}
	}

	return s.registry.Invoke(ctx, call.Name, call.Input)
}
