package extraction

import "github.com/zombor/fitparse/internal/workout"

// Extractor defines the interface for workout data extraction providers
type Extractor interface {
	// Extract analyzes an encoded PDF or screen recording and returns every
	// workout set found in it
	Extract(payload Payload) ([]workout.Set, error)
	// Close closes the extractor and releases resources
	Close() error
}
