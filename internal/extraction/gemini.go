package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/fitparse/internal/workout"
)

// geminiTimeout bounds a single extraction call. Screen recordings take much
// longer than documents to analyze, so this is generous.
const geminiTimeout = 5 * time.Minute

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	// Constrain the output to the exact set shape so the response parses
	// without prose or partial objects
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"date":       {Type: genai.TypeString},
				"exercise":   {Type: genai.TypeString},
				"weight":     {Type: genai.TypeString},
				"reps":       {Type: genai.TypeInteger},
				"set_number": {Type: genai.TypeInteger},
				"notes":      {Type: genai.TypeString},
			},
			Required: []string{"date", "exercise", "weight", "reps", "set_number", "notes"},
		},
	}

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Extract analyzes a workout PDF or screen recording and returns its sets
func (g *Gemini) Extract(payload Payload) ([]workout.Set, error) {
	ctx, cancel := context.WithTimeout(context.Background(), geminiTimeout)
	defer cancel()

	raw, err := payload.Bytes()
	if err != nil {
		return nil, err
	}

	parts := []genai.Part{
		genai.Blob{MIMEType: payload.MIMEType, Data: raw},
		genai.Text(workoutScanPrompt(payload.IsVideo())),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no data extracted from file")
	}

	// Extract text response
	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(responseText.String())
	if text == "" {
		return nil, fmt.Errorf("no data extracted from file")
	}

	sets, err := parseWorkoutJSON(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workout data: %w", err)
	}

	return sets, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
