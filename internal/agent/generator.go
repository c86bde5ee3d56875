package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/tutor/config"
	"github.com/mohammad-safakhou/tutor/internal/provider"
	"github.com/mohammad-safakhou/tutor/internal/tools"
	"github.com/mohammad-safakhou/tutor/models"
)

const systemPrompt = `You are an AI assistant for course materials. You answer questions using the indexed course content.

Tool usage:
- Use search_course_content for questions about specific course content or lessons.
- Use get_course_outline for questions about a course's structure or lesson list.
- At most one search per sub-question. If a search fails or returns nothing, say so instead of retrying.

Answers must be concise and factual. No meta-commentary about the search process.`

// Generator drives the bounded model/tool-call round-trip producing one
// final answer. Tool calls requested in a round all execute before the next
// model round; exceeding the round cap forces a final tools-stripped call.
type Generator struct {
	provider  provider.Provider
	maxRounds int
	logger    *log.Logger
}

func NewGenerator(p provider.Provider, cfg config.LLMConfig, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(log.Writer(), "[AGENT] ", log.LstdFlags)
	}
	rounds := cfg.MaxToolRounds
	if rounds < 1 {
		rounds = 2
	}
	return &Generator{provider: p, maxRounds: rounds, logger: logger}
}

// Generate answers one question. history is the flattened prior exchange
// text; registry supplies tool definitions and dispatch. The returned
// sources come only from tool executions of this call, so concurrent
// generations over a shared registry never see each other's citations.
// Transport failures terminate the loop unretried, discarding the round's
// tool results.
func (g *Generator) Generate(ctx context.Context, question, history string, registry *tools.Registry) (string, []models.Source, error) {
	sys := systemPrompt
	if history != "" {
		sys += "\n\nPrevious conversation:\n" + history
	}
	messages := []provider.Message{
		{Role: "system", Content: sys},
		{Role: "user", Content: question},
	}
	defs := registry.Definitions()

	var sources []models.Source
	for round := 0; round < g.maxRounds; round++ {
		resp, err := g.provider.Chat(ctx, messages, defs)
		if err != nil {
			return "", nil, fmt.Errorf("model call failed: %w", err)
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Content, sources, nil
		}
		messages = append(messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			text, callSources := g.runTool(ctx, registry, call)
			sources = append(sources, callSources...)
			messages = append(messages, provider.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    text,
			})
		}
	}

	// Round cap reached: one final call without tools for the best
	// available answer.
	g.logger.Printf("round cap %d reached, forcing final answer", g.maxRounds)
	resp, err := g.provider.Chat(ctx, messages, nil)
	if err != nil {
		return "", nil, fmt.Errorf("model call failed: %w", err)
	}
	return resp.Content, sources, nil
}

// runTool executes one requested call. Failures are rendered as text so the
// model can explain them; nothing raises past this point.
func (g *Generator) runTool(ctx context.Context, registry *tools.Registry, call provider.ToolCall) (string, []models.Source) {
	var args map[string]interface{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			g.logger.Printf("tool %s: malformed arguments: %v", call.Function.Name, err)
			return fmt.Sprintf("Tool error: malformed arguments for %s", call.Function.Name), nil
		}
	}
	res, err := registry.Execute(ctx, call.Function.Name, args)
	if err != nil {
		g.logger.Printf("tool %s: %v", call.Function.Name, err)
		return fmt.Sprintf("Tool error: %v", err), nil
	}
	return res.Text, res.Sources
}
