// Package cofounder builds the AI co-founder prompts, sends them to the
// completion endpoint and turns the answers into typed results.
package cofounder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/llm"
)

// Sampling parameters used for every call.
const (
	Temperature = 0.7
	MaxTokens   = 1000
)

// maxHistory bounds the conversation turns forwarded with a chat message.
const maxHistory = 20

// Request types understood by Insights.
const (
	RequestDashboardInsights = "dashboard_insights"
	RequestIdeaValidation    = "idea_validation"
)

const (
	ErrMessageUnavailable = "I apologize, but I'm having trouble connecting right now. Please try again in a moment."
	ErrMessageUnreadable  = "The AI co-founder returned an unreadable response. Please try again."
)

type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

type Service struct {
	client Completer
	model  string
	logger logging.Logger
}

func NewService(client Completer, model string, logger logging.Logger) *Service {
	return &Service{
		client: client,
		model:  model,
		logger: logger.With("module", "cofounder"),
	}
}

func (s *Service) Model() string {
	return s.model
}

// Chat answers message in the context of history. Only user and assistant
// turns from history are forwarded, at most maxHistory of them.
func (s *Service) Chat(ctx context.Context, message string, history []llm.Message) *Reply {
	return s.reply(ctx, "chat", message, history)
}

// Recommendations asks for advice on one business area.
func (s *Service) Recommendations(ctx context.Context, area, subject string) *Reply {
	return s.reply(ctx, "recommendations", recommendationPrompt(area, subject), nil)
}

func (s *Service) reply(ctx context.Context, op, message string, history []llm.Message) *Reply {
	resp, err := s.complete(ctx, message, history)
	if err != nil {
		s.logger.Error(ctx, "completion failed", "op", op, "error", err)
		return &Reply{Outcome: unavailable(err)}
	}
	usage := resp.Usage
	return &Reply{Outcome: Outcome{Success: true}, Response: resp.Content, Usage: &usage}
}

// Insights asks for insights about data. The answer is decoded into the
// shape that belongs to requestType; unknown types yield *GenericInsights.
// The returned Result is never nil.
func (s *Service) Insights(ctx context.Context, data any, requestType string) Result {
	prompt, err := insightsPrompt(data, requestType)
	if err != nil {
		return &Failure{Outcome: Outcome{Error: ErrMessageUnreadable, Details: err.Error()}}
	}

	switch requestType {
	case RequestDashboardInsights:
		out := &DashboardInsights{}
		if f := s.structured(ctx, requestType, prompt, out, func() error {
			if len(out.Insights) == 0 {
				return errors.New("insights list is empty")
			}
			out.normalize()
			return nil
		}); f != nil {
			return f
		}
		out.Outcome = Outcome{Success: true}
		return out

	case RequestIdeaValidation:
		out := &IdeaValidation{}
		if f := s.structured(ctx, requestType, prompt, out, func() error {
			if out.Validation == nil {
				return errors.New("validation object is missing")
			}
			out.normalize()
			return nil
		}); f != nil {
			return f
		}
		out.Outcome = Outcome{Success: true}
		return out

	default:
		out := &GenericInsights{RequestType: requestType}
		if f := s.structured(ctx, requestType, prompt, &out.Data, nil); f != nil {
			return f
		}
		delete(out.Data, "success")
		out.Outcome = Outcome{Success: true}
		return out
	}
}

// MarketAnalysis sizes the market for businessIdea in industry.
func (s *Service) MarketAnalysis(ctx context.Context, businessIdea, industry string) Result {
	out := &MarketAnalysis{}
	prompt := fmt.Sprintf(marketAnalysisTemplate, businessIdea, industry)
	if f := s.structured(ctx, "market_analysis", prompt, out, func() error {
		if strings.TrimSpace(out.Recommendation) == "" {
			return errors.New("recommendation is missing")
		}
		out.normalize()
		return nil
	}); f != nil {
		return f
	}
	out.Outcome = Outcome{Success: true}
	return out
}

// Health sends a short probe and reports whether the endpoint answered.
func (s *Service) Health(ctx context.Context) error {
	if _, err := s.complete(ctx, healthProbe, nil); err != nil {
		s.logger.Warn(ctx, "health probe failed", "error", err)
		return err
	}
	return nil
}

// structured completes prompt, decodes the JSON found in the answer into
// dst and runs check, if any. It returns nil on success.
func (s *Service) structured(ctx context.Context, op, prompt string, dst any, check func() error) *Failure {
	resp, err := s.complete(ctx, prompt, nil)
	if err != nil {
		s.logger.Error(ctx, "completion failed", "op", op, "error", err)
		return &Failure{Outcome: unavailable(err)}
	}

	if err := decode(resp.Content, dst); err != nil {
		s.logger.Warn(ctx, "unreadable model output", "op", op, "error", err)
		return &Failure{Outcome: Outcome{Error: ErrMessageUnreadable, Details: err.Error()}}
	}
	if check != nil {
		if err := check(); err != nil {
			s.logger.Warn(ctx, "model output failed validation", "op", op, "error", err)
			return &Failure{Outcome: Outcome{Error: ErrMessageUnreadable, Details: err.Error()}}
		}
	}
	return nil
}

func (s *Service) complete(ctx context.Context, message string, history []llm.Message) (*llm.Response, error) {
	temperature := Temperature
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: Persona})
	messages = append(messages, filterHistory(history)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	return s.client.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   MaxTokens,
	})
}

func filterHistory(history []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if (m.Role == llm.RoleUser || m.Role == llm.RoleAssistant) && strings.TrimSpace(m.Content) != "" {
			out = append(out, m)
		}
	}
	if len(out) > maxHistory {
		out = out[len(out)-maxHistory:]
	}
	return out
}

func decode(content string, dst any) error {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return errors.New("no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

func unavailable(err error) Outcome {
	return Outcome{Error: ErrMessageUnavailable, Details: err.Error()}
}
