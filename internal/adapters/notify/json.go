package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

// JSONWriter implementa ports.Notifier emitiendo un report JSON por línea,
// el contrato que consume el Reporting Layer.
type JSONWriter struct {
	out io.Writer
}

// NewJSON crea un JSONWriter sobre stdout.
func NewJSON() *JSONWriter {
	return &JSONWriter{out: os.Stdout}
}

// NewJSONWriter crea un JSONWriter sobre w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{out: w}
}

// Notify escribe cada report como una línea JSON.
func (j *JSONWriter) Notify(_ context.Context, reports []domain.Report) error {
	enc := json.NewEncoder(j.out)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("notify.JSONWriter: encode %s: %w", r.AccountID, err)
		}
	}
	return nil
}
