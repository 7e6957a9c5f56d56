package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rastermill/rastermill/pkg/errors"
)

// MaxBodyBytes caps the size of request bodies read by [ReadJSON].
const MaxBodyBytes = 1 << 20

// errorBody is the JSON envelope for error responses.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON response with the given status code. The
// body is marshaled before any headers are committed, so an encoding
// failure still produces a well-formed error response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// WriteError writes a structured JSON error response with the given
// status and machine-readable code.
func WriteError(w http.ResponseWriter, status int, code errors.Code, format string, args ...any) {
	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = fmt.Sprintf(format, args...)

	data, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// ReadJSON decodes the request body into v. Bodies over [MaxBodyBytes]
// and bodies with trailing data after the JSON value are rejected.
// Failures carry the INVALID_INPUT error code.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	if dec.More() {
		return errors.New(errors.ErrCodeInvalidInput, "request body contains trailing data")
	}
	return nil
}
