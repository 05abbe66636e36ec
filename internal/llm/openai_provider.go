package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const (
	// Role constants
	userRole      = "user"
	developerRole = "developer"
	systemRole    = "system"

	// Reasoning effort levels
	reasoningNone    = "none"
	reasoningMinimal = "minimal"
	reasoningMin     = "min"
	reasoningLow     = "low"
	reasoningMedium  = "medium"
	reasoningMed     = "med"
	reasoningHigh    = "high"

	// Provider name
	providerNameOpenAI = "openai"

	// Logging limits
	maxPreviewChars = 200
)

// modelsWithReasoning accept a reasoning effort but reject temperature and top_p
var modelsWithReasoning = map[string]bool{
	"gpt-5":        true,
	"gpt-5-mini":   true,
	"gpt-5-nano":   true,
	"gpt-5.1":      true,
	"gpt-5.1-mini": true,
	"gpt-5.1-nano": true,
	"gpt-5.2":      true,
	"gpt-5.2-mini": true,
	"gpt-5.2-nano": true,
	"gpt-5.2-pro":  true,
	"o3":           true,
	"o3-mini":      true,
	"o4-mini":      true,
}

// OpenAIProvider implements the Provider interface using OpenAI's Responses API
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider. Extra request options are
// appended after the API key (base URL, retry policy).
func NewOpenAIProvider(apiKey string, opts ...option.RequestOption) *OpenAIProvider {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		client: &client,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Generate implements generation using OpenAI's Responses API
func (p *OpenAIProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	log.Printf("🎵 OPENAI GENERATION REQUEST STARTED (Model: %s)", request.Model)

	// Start Sentry transaction
	transaction := sentry.StartTransaction(ctx, "openai.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOpenAI)
	transaction.SetTag("structured_output", fmt.Sprintf("%t", request.OutputSchema != nil))

	params := p.buildRequestParams(request)

	// Call OpenAI API with Sentry span
	span := transaction.StartChild("openai.api_call")
	apiStartTime := time.Now()
	resp, err := p.client.Responses.New(ctx, params)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ OPENAI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, &TransportError{Provider: providerNameOpenAI, Err: err}
	}

	log.Printf("⏱️  OPENAI API CALL COMPLETED in %v", apiDuration)

	result := p.processResponse(resp, startTime, transaction)

	transaction.SetTag("success", "true")
	return result, nil
}

// buildRequestParams converts GenerationRequest to OpenAI-specific ResponseNewParams
func (p *OpenAIProvider) buildRequestParams(request *GenerationRequest) responses.ResponseNewParams {
	// Convert input_array to OpenAI messages format
	inputItems := responses.ResponseInputParam{}

	for _, item := range request.InputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)

		if !hasRole || !hasContent {
			log.Printf("⚠️  Skipping invalid input item (missing role or content): %v", item)
			continue
		}

		var roleEnum responses.EasyInputMessageRole
		switch role {
		case developerRole, systemRole:
			roleEnum = responses.EasyInputMessageRoleDeveloper
		default:
			roleEnum = responses.EasyInputMessageRoleUser
		}

		inputItems = append(inputItems,
			responses.ResponseInputItemParamOfMessage(content, roleEnum),
		)
	}

	params := responses.ResponseNewParams{
		Model: request.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: inputItems,
		},
	}

	if request.SystemPrompt != "" {
		params.Instructions = openai.String(request.SystemPrompt)
	}
	if request.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(request.MaxOutputTokens)
	}

	// Only include the Reasoning parameter for models that support it;
	// the same models reject sampling controls.
	if modelsWithReasoning[request.Model] {
		params.Reasoning = shared.ReasoningParam{
			Effort: reasoningEffort(request.ReasoningMode),
		}
	} else {
		if request.Temperature != nil {
			params.Temperature = openai.Float(*request.Temperature)
		}
		if request.TopP != nil {
			params.TopP = openai.Float(*request.TopP)
		}
	}

	if request.OutputSchema != nil {
		format := responses.ResponseFormatTextConfigParamOfJSONSchema(
			request.OutputSchema.Name,
			request.OutputSchema.Schema,
		)
		if request.OutputSchema.Description != "" && format.OfJSONSchema != nil {
			format.OfJSONSchema.Description = openai.String(request.OutputSchema.Description)
		}
		params.Text = responses.ResponseTextConfigParam{Format: format}
		log.Printf("📋 JSON SCHEMA CONFIGURED: %s", request.OutputSchema.Name)
	}

	return params
}

func reasoningEffort(mode string) shared.ReasoningEffort {
	switch mode {
	case reasoningMinimal, reasoningMin:
		return shared.ReasoningEffort(reasoningMinimal)
	case reasoningLow:
		return shared.ReasoningEffortLow
	case reasoningMedium, reasoningMed:
		return shared.ReasoningEffortMedium
	case reasoningHigh:
		return shared.ReasoningEffortHigh
	default:
		return shared.ReasoningEffort(reasoningNone)
	}
}

// processResponse extracts the text output and usage from an OpenAI response.
// An empty output is returned as is; decoding the text is the caller's job.
func (p *OpenAIProvider) processResponse(
	resp *responses.Response,
	startTime time.Time,
	transaction *sentry.Span,
) *GenerationResponse {
	span := transaction.StartChild("process_response")
	defer span.Finish()

	textOutput := resp.OutputText()
	log.Printf("📥 OPENAI RESPONSE: output_length=%d, output_items=%d, tokens=%d",
		len(textOutput), len(resp.Output), resp.Usage.TotalTokens)

	p.logUsageStats(resp.Usage)
	log.Printf("✅ OPENAI GENERATION COMPLETED in %v", time.Since(startTime))

	return &GenerationResponse{
		RawOutput: textOutput,
		Usage:     resp.Usage,
		Tokens: TokenUsage{
			Input:     resp.Usage.InputTokens,
			Output:    resp.Usage.OutputTokens,
			Total:     resp.Usage.TotalTokens,
			Reasoning: resp.Usage.OutputTokensDetails.ReasoningTokens,
		},
	}
}

func (p *OpenAIProvider) logUsageStats(usage responses.ResponseUsage) {
	log.Printf("📊 OPENAI USAGE: input=%d, output=%d, reasoning=%d, total=%d",
		usage.InputTokens,
		usage.OutputTokens,
		usage.OutputTokensDetails.ReasoningTokens,
		usage.TotalTokens)
}

// truncate shortens s for log output
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
