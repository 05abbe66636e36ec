package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiProvider_Name(t *testing.T) {
	// no client is needed for the name
	provider := &GeminiProvider{client: nil}
	assert.Equal(t, "gemini", provider.Name())
}

func TestGeminiProvider_BuildContents(t *testing.T) {
	provider := &GeminiProvider{client: nil}

	tests := []struct {
		name       string
		inputArray []map[string]any
		wantLen    int
	}{
		{
			name:       "single user message",
			inputArray: []map[string]any{{"role": "user", "content": "test content"}},
			wantLen:    1,
		},
		{
			name:       "developer role converted to user",
			inputArray: []map[string]any{{"role": "developer", "content": "system message"}},
			wantLen:    1,
		},
		{
			name: "invalid message skipped",
			inputArray: []map[string]any{
				{"role": "user", "content": "valid"},
				{"role": "user"}, // missing content
			},
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents := provider.buildGeminiContents(tt.inputArray)
			assert.Len(t, contents, tt.wantLen)

			for _, content := range contents {
				assert.Equal(t, "user", content.Role)
				assert.NotEmpty(t, content.Parts)
			}
		})
	}
}

func TestGeminiProvider_BuildConfig(t *testing.T) {
	provider := &GeminiProvider{client: nil}

	config := provider.buildConfig(&GenerationRequest{
		SystemPrompt:    "only JSON",
		Temperature:     Float(0.68),
		TopP:            Float(0.9),
		MaxOutputTokens: 1200,
		OutputSchema:    TrackSetSchema(),
	})

	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "only JSON", config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.68, *config.Temperature, 1e-6)
	require.NotNil(t, config.TopP)
	assert.InDelta(t, 0.9, *config.TopP, 1e-6)
	assert.Equal(t, int32(1200), config.MaxOutputTokens)
	assert.Equal(t, "application/json", config.ResponseMIMEType)
	assert.NotNil(t, config.ResponseSchema)

	empty := provider.buildConfig(&GenerationRequest{})
	assert.Nil(t, empty.SystemInstruction)
	assert.Nil(t, empty.Temperature)
	assert.Nil(t, empty.ResponseSchema)
}

func TestConvertSchemaToGemini(t *testing.T) {
	schema := convertSchemaToGemini(TrackSetSchema().Schema)
	require.NotNil(t, schema)

	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"melody", "chords", "bass", "rhythm"}, schema.Required)
	require.Len(t, schema.Properties, 4)

	rhythm := schema.Properties["rhythm"]
	require.NotNil(t, rhythm)
	assert.Equal(t, genai.TypeArray, rhythm.Type)

	event := rhythm.Items
	require.NotNil(t, event)
	assert.Equal(t, genai.TypeArray, event.Type)
	require.NotNil(t, event.MinItems)
	assert.Equal(t, int64(4), *event.MinItems)
	require.NotNil(t, event.MaxItems)
	assert.Equal(t, int64(4), *event.MaxItems)
	require.NotNil(t, event.Items)
	assert.Equal(t, genai.TypeInteger, event.Items.Type)

	assert.Nil(t, convertSchemaToGemini(nil))
}

func TestNewGeminiProvider_InvalidKey(t *testing.T) {
	provider, err := NewGeminiProvider(context.Background(), "invalid-key")

	// client creation does not validate the key against the API
	if err != nil {
		assert.Error(t, err)
	} else {
		assert.NotNil(t, provider)
		assert.Equal(t, "gemini", provider.Name())
	}
}
