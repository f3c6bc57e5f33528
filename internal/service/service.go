// Package service runs conversational exchanges: it drives model turns,
// executes requested tools, and emits the outbound event stream.
package service

import (
	"github.com/hollisb/patter/internal/config"
	"github.com/hollisb/patter/internal/llm"
	"github.com/hollisb/patter/internal/logger"
	"github.com/hollisb/patter/internal/policy"
	"github.com/hollisb/patter/internal/tools"
)

var log = logger.Named("service")

// Service coordinates one exchange at a time per session value.
type Service struct {
	llmClient    *llm.Client
	registry     *tools.Registry
	policyEngine *policy.Engine
	config       *config.Config
}

// New wires a service from its injected dependencies.
func New(llmClient *llm.Client, registry *tools.Registry, policyEngine *policy.Engine, cfg *config.Config) *Service {
	return &Service{
		llmClient:    llmClient,
		registry:     registry,
		policyEngine: policyEngine,
		config:       cfg,
	}
}
