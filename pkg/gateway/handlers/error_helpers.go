package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fleetvoice/fleetvoice/pkg/core"
)

type errorEnvelope struct {
	Error *core.Error `json:"error"`
}

func writeCoreErrorJSON(w http.ResponseWriter, reqID string, coreErr *core.Error, status int) {
	if coreErr != nil && coreErr.RequestID == "" {
		coreErr.RequestID = reqID
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: coreErr})
}

// writeToolErrorJSON writes the flat {"error": "..."} shape the tool
// endpoint contract uses, as opposed to the structured gateway envelope.
func writeToolErrorJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
