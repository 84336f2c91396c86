// Package openai interprets free-text bot messages with an OpenAI model
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// Commands the agent can select
const (
	CommandGetStationData = "GetStationData"
	CommandGetAlerts      = "GetAlerts"
	CommandGeneralQuery   = "GeneralQuery"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName string `json:"command_name" jsonschema_description:"The command to execute: GetStationData, GetAlerts or GeneralQuery"`
	StationName string `json:"station_name" jsonschema_description:"The Danube port the user asks about, spelled as in the station list, if applicable"`
	UserMessage string `json:"user_message" jsonschema_description:"A message to show back to the user in their original language"`
}

// OpenAIService defines the interface for interacting with the OpenAI agent.
type OpenAIService interface {
	InterpretUserQuery(ctx context.Context, userMessage string, stations []string) (*AgentResponse, error)
}

// openAIServiceImpl implements the OpenAIService interface.
type openAIServiceImpl struct {
	client openai.Client
	schema interface{}
	logger *zap.SugaredLogger
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// NewOpenAIService creates and initializes a new OpenAIService.
func NewOpenAIService(apiKey string, logger *zap.SugaredLogger, opts ...option.RequestOption) (OpenAIService, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &openAIServiceImpl{
		client: openai.NewClient(opts...),
		schema: GenerateSchema[AgentResponse](),
		logger: logger,
	}, nil
}

// systemPrompt describes the bot's job and the stations it knows
func systemPrompt(stations []string) string {
	return fmt.Sprintf(`You are a concise assistant for boaters, fishermen and riverside residents following the Danube water levels published by AFDJ Galați.

You understand Romanian and English and always reply in the language the user wrote in.

Known Danube ports, from the Black Sea upstream: %s

Behavior:
1. If the user wants the current level, trend or temperature at a port from the list:
   - command_name = "GetStationData"
   - station_name: the port exactly as spelled in the list; if it is missing or unclear, leave it empty.
   - user_message: a one-line confirmation in the user's language.
2. If the user asks about warnings, floods or unusual changes along the river:
   - command_name = "GetAlerts"
   - station_name = ""
   - user_message: a one-line confirmation in the user's language.
3. Anything else (greetings, small talk, unrelated questions):
   - command_name = "GeneralQuery"
   - station_name = ""
   - user_message: a short reply in the user's language pointing to /help.

Output strictly in JSON.`, strings.Join(stations, ", "))
}

// InterpretUserQuery sends a message to the OpenAI agent and returns the structured response.
func (s *openAIServiceImpl) InterpretUserQuery(ctx context.Context, userMessage string, stations []string) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "agent_response",
		Description: openai.String("Structured response containing command, station name, and user message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(stations)),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})
	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &agentResp); err != nil {
		s.logger.Warnf("Failed to unmarshal OpenAI response: %s\nRaw response: %s", err, chat.Choices[0].Message.Content)
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}

	return &agentResp, nil
}
