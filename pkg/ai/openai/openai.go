package openai

import (
	"github.com/OFFIS-RIT/influence/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ExtractOpenAIClient implements ai.Client against any OpenAI compatible
// chat completion endpoint.
//
// An ExtractOpenAIClient should be created using NewExtractOpenAIClient.
type ExtractOpenAIClient struct {
	ai.MetricsRecorder

	extractionModel string

	ChatClient *openai.Client
}

// NewExtractOpenAIClientParams defines the configuration parameters for
// creating a new ExtractOpenAIClient. An empty ChatURL targets the public
// OpenAI API.
type NewExtractOpenAIClientParams struct {
	ExtractionModel string

	ChatURL string
	ChatKey string
}

// NewExtractOpenAIClient creates and returns a new ExtractOpenAIClient.
//
// Example:
//
//	client := openai.NewExtractOpenAIClient(openai.NewExtractOpenAIClientParams{
//		ExtractionModel: "gpt-4o-mini",
//		ChatKey:         os.Getenv("AI_CHAT_KEY"),
//	})
func NewExtractOpenAIClient(
	params NewExtractOpenAIClientParams,
) *ExtractOpenAIClient {
	options := []option.RequestOption{
		option.WithAPIKey(params.ChatKey),
	}
	if params.ChatURL != "" {
		options = append(options, option.WithBaseURL(params.ChatURL))
	}
	client := openai.NewClient(options...)

	return &ExtractOpenAIClient{
		extractionModel: params.ExtractionModel,
		ChatClient:      &client,
	}
}
