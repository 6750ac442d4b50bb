package question

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const questionSchemaName = "question"

// questionSchema constrains the model output to a strict JSON object.
var questionSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []any{"prompt", "answer"},
	"properties": map[string]any{
		"prompt": map[string]any{"type": "string", "minLength": 1},
		"answer": map[string]any{"type": "string", "minLength": 1},
	},
}

var (
	compiledSchema     *jsonschema.Schema
	compileSchemaOnce  sync.Once
	compileSchemaError error
)

func questionJSONSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		url := fmt.Sprintf("schema://%s.json", questionSchemaName)
		if err := c.AddResource(url, questionSchema); err != nil {
			compileSchemaError = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileSchemaError = c.Compile(url)
	})
	return compiledSchema, compileSchemaError
}

// OpenAI generates questions through the chat completion API with strict
// JSON schema output. On any failure it falls back to the wrapped local
// generator so practice never stalls on a flaky network.
type OpenAI struct {
	client   *openai.Client
	model    string
	fallback Generator
	log      *zap.Logger
}

// NewOpenAI builds the adapter. fallback must not be nil.
func NewOpenAI(apiKey, model string, fallback Generator, log *zap.Logger) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAI{
		client:   openai.NewClient(apiKey),
		model:    model,
		fallback: fallback,
		log:      log,
	}, nil
}

type questionPayload struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

func (o *OpenAI) Generate(ctx context.Context, topicID string, level int) (*Question, error) {
	q, err := o.generate(ctx, topicID, level)
	if err != nil {
		o.log.Warn("remote question generation failed, using local fallback",
			zap.String("topic", topicID),
			zap.Int("level", level),
			zap.Error(err))
		return o.fallback.Generate(ctx, topicID, level)
	}
	return q, nil
}

func (o *OpenAI) generate(ctx context.Context, topicID string, level int) (*Question, error) {
	schemaBytes, err := json.Marshal(questionSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You write short practice questions with a single " +
					"unambiguous short answer. Reply with JSON only.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(
					"Topic: %s. Difficulty: %d of 5. One question.", topicID, level),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   questionSchemaName,
				Schema: json.RawMessage(schemaBytes),
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	raw := []byte(resp.Choices[0].Message.Content)
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	schema, err := questionJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var payload questionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}

	want := NormalizeAnswer(payload.Answer)
	return &Question{
		ID:     uuid.NewString(),
		Prompt: payload.Prompt,
		Answer: payload.Answer,
		Check: func(got string) bool {
			return NormalizeAnswer(got) == want
		},
	}, nil
}
