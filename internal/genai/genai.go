package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the text-generation capability. Implementations are stateless so
// callers can substitute canned responses or simulated failures in tests.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

const defaultTimeout = 30 * time.Second

// OpenAI generates text through the OpenAI chat completion API.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAI(c Config) *OpenAI {
	model := c.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OpenAI{
		client:  openai.NewClient(c.APIKey),
		model:   model,
		timeout: timeout,
	}
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("genai: chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("genai: chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// ExtractJSON strips the markdown code fences the model tends to wrap around
// structured output. The remaining text is returned as-is; whether it is
// valid JSON is for the caller to decide.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}

	return strings.TrimSpace(s)
}
