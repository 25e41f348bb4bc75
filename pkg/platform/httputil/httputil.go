package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "visita/pkg/domain-errors"
)

// WriteJSON writes a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Decode parses a JSON request body into T. Unknown body shapes surface as a
// bad-request error ready for WriteError.
func Decode[T any](r *http.Request) (*T, error) {
	var body T
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	return &body, nil
}

// WriteError centralizes domain error translation to HTTP responses. Keeping it
// here ensures consistent JSON error envelopes across handlers.
//
// Internal error causes are never sent to the client; the description is only
// included for caller-correctable codes.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["error_description"] = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, body)
}
