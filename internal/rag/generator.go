package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"course-rag/internal/models"
	"course-rag/internal/tools"
)

const (
	generateTemperature = 0.0
	generateMaxTokens   = 800
)

// Generator drives the model through at most one tool round per query.
type Generator struct {
	model    llms.Model
	registry *tools.Registry
}

func NewGenerator(model llms.Model, registry *tools.Registry) *Generator {
	return &Generator{model: model, registry: registry}
}

// Generate answers one query. The model may request any number of tool
// calls in its first reply; all of them are executed and fed back in a
// single round, after which the model has to answer with text.
func (g *Generator) Generate(ctx context.Context, query, history string) (string, []models.Source, error) {
	systemText := models.SystemPrompt
	if history != "" {
		systemText += "\n\nPrevious conversation:\n" + history
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemText),
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}

	resp, err := g.model.GenerateContent(ctx, messages,
		llms.WithTools(g.registry.Definitions()),
		llms.WithTemperature(generateTemperature),
		llms.WithMaxTokens(generateMaxTokens),
	)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate response: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("model returned no choices")
	}

	choice := resp.Choices[0]
	if len(choice.ToolCalls) == 0 {
		return choice.Content, nil, nil
	}

	messages, sources, err := g.executeToolCalls(ctx, messages, choice)
	if err != nil {
		return "", nil, err
	}

	// The follow-up call carries no tool definitions, forcing text.
	final, err := g.model.GenerateContent(ctx, messages,
		llms.WithTemperature(generateTemperature),
		llms.WithMaxTokens(generateMaxTokens),
	)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate final response: %v", err)
	}
	if len(final.Choices) == 0 {
		return "", nil, fmt.Errorf("model returned no choices")
	}

	return final.Choices[0].Content, sources, nil
}

// executeToolCalls runs every call the model requested, in order, and
// appends the assistant turn plus the tool results to the transcript.
func (g *Generator) executeToolCalls(ctx context.Context, messages []llms.MessageContent, choice *llms.ContentChoice) ([]llms.MessageContent, []models.Source, error) {
	assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if choice.Content != "" {
		assistant.Parts = append(assistant.Parts, llms.TextPart(choice.Content))
	}

	toolResults := llms.MessageContent{Role: llms.ChatMessageTypeTool}
	var sources []models.Source

	for _, call := range choice.ToolCalls {
		assistant.Parts = append(assistant.Parts, call)

		log.Debug().Str("tool", call.FunctionCall.Name).Str("args", call.FunctionCall.Arguments).Msg("Executing tool call")
		result, err := g.registry.Execute(ctx, call.FunctionCall.Name, json.RawMessage(call.FunctionCall.Arguments))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to execute tool %s: %v", call.FunctionCall.Name, err)
		}

		toolResults.Parts = append(toolResults.Parts, llms.ToolCallResponse{
			ToolCallID: call.ID,
			Name:       call.FunctionCall.Name,
			Content:    result.Output,
		})
		sources = append(sources, result.Sources...)
	}

	return append(messages, assistant, toolResults), sources, nil
}
