package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	mimeTypeJSON       = "application/json"
	geminiUserRole     = "user"
)

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// Generate implements generation using Gemini's API
func (p *GeminiProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	log.Printf("🎵 GEMINI GENERATION REQUEST STARTED (Model: %s)", request.Model)

	// Start Sentry transaction
	transaction := sentry.StartTransaction(ctx, "gemini.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameGemini)

	contents := p.buildGeminiContents(request.InputArray)
	if len(contents) == 0 {
		err := errors.New("no valid input messages")
		transaction.SetTag("success", "false")
		return nil, &TransportError{Provider: providerNameGemini, Err: err}
	}

	config := p.buildConfig(request)

	// Call Gemini API
	span := transaction.StartChild("gemini.api_call")
	apiStartTime := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, request.Model, contents, config)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ GEMINI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, &TransportError{Provider: providerNameGemini, Err: err}
	}

	log.Printf("⏱️  GEMINI API CALL COMPLETED in %v", apiDuration)

	response, err := p.processGeminiResponse(result, startTime, transaction)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, &TransportError{Provider: providerNameGemini, Err: err}
	}

	transaction.SetTag("success", "true")
	return response, nil
}

// buildConfig maps the request's system prompt, sampling and schema onto Gemini's config
func (p *GeminiProvider) buildConfig(request *GenerationRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if request.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemPrompt}},
		}
	}
	if request.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*request.Temperature))
	}
	if request.TopP != nil {
		config.TopP = genai.Ptr(float32(*request.TopP))
	}
	if request.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxOutputTokens)
	}

	// Add JSON schema for structured output if provided
	if request.OutputSchema != nil {
		config.ResponseMIMEType = mimeTypeJSON
		config.ResponseSchema = convertSchemaToGemini(request.OutputSchema.Schema)
	}

	return config
}

// buildGeminiContents converts our input array to Gemini Content format
func (p *GeminiProvider) buildGeminiContents(inputArray []map[string]any) []*genai.Content {
	var contents []*genai.Content

	for _, item := range inputArray {
		_, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)

		if !hasRole || !hasContent {
			log.Printf("⚠️  Skipping invalid input item (missing role or content): %v", item)
			continue
		}

		// Gemini only has "user" and "model"; developer and system messages go as user
		contents = append(contents, &genai.Content{
			Role:  geminiUserRole,
			Parts: []*genai.Part{{Text: content}},
		})
	}

	return contents
}

// convertSchemaToGemini converts a JSON schema map to Gemini's schema type.
// Keywords Gemini does not understand (additionalProperties) are dropped.
func convertSchemaToGemini(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{}

	switch schema["type"] {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "string":
		out.Type = genai.TypeString
	case "boolean":
		out.Type = genai.TypeBoolean
	}

	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propSchema, ok := prop.(map[string]any); ok {
				out.Properties[name] = convertSchemaToGemini(propSchema)
			}
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = convertSchemaToGemini(items)
	}

	if required, ok := schema["required"].([]string); ok {
		out.Required = append([]string(nil), required...)
	}

	if v, ok := numberValue(schema["minItems"]); ok {
		out.MinItems = genai.Ptr(int64(v))
	}
	if v, ok := numberValue(schema["maxItems"]); ok {
		out.MaxItems = genai.Ptr(int64(v))
	}
	if v, ok := numberValue(schema["minimum"]); ok {
		out.Minimum = genai.Ptr(v)
	}
	if v, ok := numberValue(schema["maximum"]); ok {
		out.Maximum = genai.Ptr(v)
	}

	return out
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// processGeminiResponse converts Gemini response to our GenerationResponse
func (p *GeminiProvider) processGeminiResponse(
	result *genai.GenerateContentResponse,
	startTime time.Time,
	transaction *sentry.Span,
) (*GenerationResponse, error) {
	span := transaction.StartChild("process_response")
	defer span.Finish()

	if len(result.Candidates) == 0 {
		return nil, errors.New("no candidates in Gemini response")
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, errors.New("no parts in Gemini response")
	}

	textOutput := result.Text()
	log.Printf("📥 GEMINI RESPONSE: output_length=%d", len(textOutput))
	log.Printf("📥 GEMINI OUTPUT PREVIEW: %s", truncate(textOutput, maxPreviewChars))

	response := &GenerationResponse{
		RawOutput: textOutput,
		Usage:     result.UsageMetadata,
	}

	if usage := result.UsageMetadata; usage != nil {
		log.Printf("📊 GEMINI USAGE: input=%d, output=%d, total=%d",
			usage.PromptTokenCount,
			usage.CandidatesTokenCount,
			usage.TotalTokenCount)
		response.Tokens = TokenUsage{
			Input:     int64(usage.PromptTokenCount),
			Output:    int64(usage.CandidatesTokenCount),
			Total:     int64(usage.TotalTokenCount),
			Reasoning: int64(usage.ThoughtsTokenCount),
		}
	}

	log.Printf("✅ GEMINI GENERATION COMPLETED in %v", time.Since(startTime))
	return response, nil
}
