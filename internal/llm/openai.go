package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/tutor"
)

// placeholderToken satisfies the client for local servers such as Ollama
// that ignore authentication.
const placeholderToken = "unused"

// OpenAIGenerator talks to any OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	llm     llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

func NewOpenAI(baseURL, token, model string, timeout time.Duration, logger *zap.Logger) (*OpenAIGenerator, error) {
	if token == "" {
		token = placeholderToken
	}
	client, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return &OpenAIGenerator{llm: client, timeout: timeout, logger: logger.Named("openai")}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req tutor.GenerationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var opts []llms.CallOption
	if req.Schema != nil {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := g.llm.GenerateContent(ctx, toMessages(req), opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("completion was empty")
	}
	g.logger.Debug("completion finished", zap.String("stop_reason", resp.Choices[0].StopReason))
	return resp.Choices[0].Content, nil
}

func toMessages(req tutor.GenerationRequest) []llms.MessageContent {
	system := req.Instruction
	if req.Schema != nil {
		system += "\n\nRespond only with a JSON object matching this JSON schema:\n" + req.Schema.String()
	}

	msgs := []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeSystem, strings.TrimSpace(system))}
	for _, h := range req.History {
		if strings.TrimSpace(h.Text) == "" {
			continue
		}
		switch h.Role {
		case tutor.RoleAssistant:
			msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeAI, h.Text))
		case tutor.RoleUser:
			msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeHuman, h.Text))
		}
	}
	return append(msgs, llms.TextParts(schema.ChatMessageTypeHuman, req.Prompt))
}
