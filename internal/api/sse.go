package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// writeEvent writes one SSE event with a JSON payload:
// "event: <type>\ndata: <json>\n\n".
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event payload: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}

	flusher.Flush()
	return nil
}
