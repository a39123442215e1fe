package assistant

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"

	"botkit-webhooks/internal/botkit"
)

//go:embed persona.yaml
var defaultPersona []byte

// Persona is the prompt and sampling style of the model-backed assistant.
type Persona struct {
	System string `yaml:"system"`
	Style  struct {
		Temperature float32 `yaml:"temperature"`
		Language    string  `yaml:"language"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

// LoadPersona reads a persona file; an empty path yields the built-in one.
func LoadPersona(path string) (Persona, error) {
	b := defaultPersona
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return Persona{}, fmt.Errorf("read persona: %w", err)
		}
	}
	var p Persona
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona: %w", err)
	}
	if strings.TrimSpace(p.System) == "" {
		return Persona{}, fmt.Errorf("parse persona: system prompt is empty")
	}
	return p, nil
}

type modelReply struct {
	Messages []string `json:"messages"`
	Handoff  bool     `json:"handoff"`
}

// OpenAIReplier asks a chat completion model for the reply.
type OpenAIReplier struct {
	persona Persona
	client  *openai.Client
	model   string
}

func NewOpenAIReplier(persona Persona, client *openai.Client, model string) *OpenAIReplier {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAIReplier{persona: persona, client: client, model: model}
}

func (r *OpenAIReplier) Reply(ctx context.Context, req Request) ([]botkit.Message, error) {
	temp := r.persona.Style.Temperature
	if temp <= 0 {
		temp = 0.1
	}
	maxTok := r.persona.Style.MaxTokens
	if maxTok <= 0 {
		maxTok = 300
	}

	var b strings.Builder
	b.WriteString(r.persona.System)
	if r.persona.Style.Language != "" {
		b.WriteString("\nReply in language: ")
		b.WriteString(r.persona.Style.Language)
	}
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: b.String()},
		{Role: openai.ChatMessageRoleUser, Content: transcript(req)},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: temp,
		MaxTokens:   maxTok,
		Messages:    messages,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: no choices")
	}
	return parseReply(resp.Choices[0].Message.Content)
}

// parseReply accepts the JSON object the persona asks for, tolerating prose
// around it. Plain text with no object becomes a single message.
func parseReply(raw string) ([]botkit.Message, error) {
	var out modelReply
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		first := strings.IndexByte(raw, '{')
		last := strings.LastIndexByte(raw, '}')
		if first < 0 || last <= first || json.Unmarshal([]byte(raw[first:last+1]), &out) != nil {
			text := strings.TrimSpace(raw)
			if text == "" {
				return nil, fmt.Errorf("chat completion: empty reply")
			}
			return []botkit.Message{botkit.NewTextMessage(text)}, nil
		}
	}

	msgs := make([]botkit.Message, 0, len(out.Messages)+1)
	for _, m := range out.Messages {
		if m = strings.TrimSpace(m); m != "" {
			msgs = append(msgs, botkit.NewTextMessage(m))
		}
	}
	if out.Handoff {
		msgs = append(msgs, botkit.NewHandoffToHumanEvent())
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("chat completion: reply has no messages")
	}
	return msgs, nil
}
