package extraction

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zombor/fitparse/internal/workout"
)

// workoutSetsSchema is the required output shape: an array of objects with all
// six fields present, reps and set_number as integers and the rest as strings.
const workoutSetsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"date": {"type": "string"},
			"exercise": {"type": "string"},
			"weight": {"type": "string"},
			"reps": {"type": "integer", "minimum": 0},
			"set_number": {"type": "integer", "minimum": 1},
			"notes": {"type": "string"}
		},
		"required": ["date", "exercise", "weight", "reps", "set_number", "notes"]
	}
}`

var setsSchema = jsonschema.MustCompileString("workout_sets.json", workoutSetsSchema)

// parseWorkoutJSON parses an LLM response into workout sets, validating the
// declared shape. The raw offending text is logged on failure, never surfaced.
func parseWorkoutJSON(text string) ([]workout.Set, error) {
	raw := text
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON array boundaries - look for first [ and last ]
	startIdx := strings.Index(text, "[")
	endIdx := strings.LastIndex(text, "]")
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		slog.Error("Extraction response is not a JSON array", "response", raw)
		return nil, fmt.Errorf("no JSON array found in response")
	}
	text = text[startIdx : endIdx+1]

	var doc interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		slog.Error("Extraction response is not valid JSON", "response", raw)
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if err := setsSchema.Validate(doc); err != nil {
		slog.Error("Extraction response failed shape validation", "response", raw, "error", err)
		return nil, fmt.Errorf("validating response shape: %w", err)
	}

	var sets []workout.Set
	if err := json.Unmarshal([]byte(text), &sets); err != nil {
		return nil, fmt.Errorf("unmarshaling workout sets: %w", err)
	}

	return sets, nil
}
