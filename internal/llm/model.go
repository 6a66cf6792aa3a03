// Package llm wraps the external reasoning boundary: a langchaingo chat
// model with the task tools advertised via native tool calling.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"taskbot/internal/config"
)

// ToolUse is one tool invocation requested by the model. Arguments is the
// raw JSON argument string as emitted by the model.
type ToolUse struct {
	ID        string
	Name      string
	Arguments string
}

// StepResult is the outcome of one model round-trip: zero or more tool
// requests plus whatever natural-language reply the model produced.
type StepResult struct {
	Reply    string
	ToolUses []ToolUse
}

// Model wraps a langchaingo LLM for tool-calling chat completion.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates an LLM model based on configuration.
func NewModel(cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
	}, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Step performs one model round-trip with the given messages and tool
// definitions. The model may answer directly, request tool calls, or both.
func (m *Model) Step(ctx context.Context, messages []llms.MessageContent, toolDefs []llms.Tool) (*StepResult, error) {
	response, err := m.llm.GenerateContent(ctx, messages, llms.WithTools(toolDefs))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}
	choice := response.Choices[0]

	result := &StepResult{Reply: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		result.ToolUses = append(result.ToolUses, ToolUse{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}

	return result, nil
}
