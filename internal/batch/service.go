package batch

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zombor/fitparse/internal/extraction"
	"github.com/zombor/fitparse/internal/workout"
)

// fallbackErrMsg is shown when a failure carries no message of its own
const fallbackErrMsg = "An unexpected error occurred during processing. Large videos may take longer or fail if they exceed token limits."

// ErrBatchInProgress is returned by Start while a batch is already running
var ErrBatchInProgress = errors.New("a batch is already being processed")

// File is one user-selected file, buffered in memory for the duration of the run
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// State is the externally observed session state. Exactly one of Err and Data
// is set after a run finishes; both are empty while idle or loading.
type State struct {
	Loading  bool          `json:"is_loading"`
	Err      string        `json:"error,omitempty"`
	Data     []workout.Set `json:"data,omitempty"`
	Progress string        `json:"progress,omitempty"`
}

// Service drives a batch of files through encode and extract, one file at a
// time, failing fast on the first error. State writes are gated on a
// generation counter so a completion that lands after a Reset (or after a
// newer batch started) is discarded instead of clobbering the current session.
type Service struct {
	extractor extraction.Extractor

	mu    sync.Mutex
	gen   uint64
	state State
}

// NewService creates a new Service
func NewService(extractor extraction.Extractor) *Service {
	return &Service{extractor: extractor}
}

// Start begins processing files in the background. It returns
// ErrBatchInProgress if a run is already active.
func (s *Service) Start(files []File) error {
	if len(files) == 0 {
		return errors.New("no files to process")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Loading {
		return ErrBatchInProgress
	}

	s.gen++
	gen := s.gen
	s.state = State{Loading: true}

	batchID := uuid.NewString()
	slog.Info("Starting batch", "batch_id", batchID, "files", len(files))

	go s.run(gen, batchID, files)
	return nil
}

// run processes the files strictly sequentially. Clearing the progress
// message is the one action guaranteed on every exit path.
func (s *Service) run(gen uint64, batchID string, files []File) {
	defer s.clearProgress(gen)

	combined := []workout.Set{}
	for i, f := range files {
		s.publishProgress(gen, fmt.Sprintf("Processing %s (%d/%d)...", f.Name, i+1, len(files)))
		slog.Info("Processing file", "batch_id", batchID, "file", f.Name, "position", i+1, "total", len(files))

		payload, err := extraction.Encode(bytes.NewReader(f.Data), f.ContentType)
		if err != nil {
			s.fail(gen, batchID, f.Name, err)
			return
		}

		sets, err := s.extractor.Extract(payload)
		if err != nil {
			s.fail(gen, batchID, f.Name, err)
			return
		}

		combined = append(combined, sets...)
	}

	workout.SortByDateDesc(combined)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		slog.Debug("Discarding stale batch result", "batch_id", batchID)
		return
	}
	s.state = State{Data: combined}
	slog.Info("Batch complete", "batch_id", batchID, "sets", len(combined))
}

// fail aborts the batch, discarding any partial results
func (s *Service) fail(gen uint64, batchID, filename string, err error) {
	slog.Error("Batch failed", "batch_id", batchID, "file", filename, "error", err)

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = fallbackErrMsg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		slog.Debug("Discarding stale batch error", "batch_id", batchID)
		return
	}
	s.state = State{Err: msg}
}

func (s *Service) publishProgress(gen uint64, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.state.Progress = msg
}

func (s *Service) clearProgress(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.state.Progress = ""
}

// Reset returns the session to its empty initial state. A run already in
// flight keeps going in the background; its eventual outcome is discarded.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = State{}
}

// Snapshot returns the current session state
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
