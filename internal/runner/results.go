package runner

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/jandubois/clinicprobe/internal/probe"
)

// resultLine is the JSON shape written per probe execution.
type resultLine struct {
	Probe      string    `json:"probe"`
	ExecutedAt time.Time `json:"executed_at"`
	DurationMs int       `json:"duration_ms"`
	*probe.Result
}

// JSONResultWriter writes one JSON object per result.
type JSONResultWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONResultWriter creates a writer that encodes results to w.
func NewJSONResultWriter(w io.Writer) *JSONResultWriter {
	return &JSONResultWriter{enc: json.NewEncoder(w)}
}

// WriteResult encodes the result as a single line.
func (w *JSONResultWriter) WriteResult(_ context.Context, name string, result *probe.Result, executedAt time.Time, durationMs int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(resultLine{
		Probe:      name,
		ExecutedAt: executedAt.UTC(),
		DurationMs: durationMs,
		Result:     result,
	})
}
