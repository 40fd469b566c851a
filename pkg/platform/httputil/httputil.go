// Package httputil maps domain errors onto HTTP responses and keeps response
// encoding in one place.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "landregistry/pkg/domain-errors"
)

// errorResponse is the wire shape of every failure.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeAlreadyRegistered:      http.StatusConflict,
	dErrors.CodeDuplicateNationalID:    http.StatusConflict,
	dErrors.CodeDuplicateLandID:        http.StatusConflict,
	dErrors.CodeTransferAlreadyPending: http.StatusConflict,
	dErrors.CodeAlreadyDecided:         http.StatusConflict,
	dErrors.CodeSameOwner:              http.StatusConflict,
	dErrors.CodeUnauthorized:           http.StatusForbidden,
	dErrors.CodeNotFound:               http.StatusNotFound,
	dErrors.CodeUnknownNationalID:      http.StatusUnprocessableEntity,
	dErrors.CodeNotRegistered:          http.StatusUnprocessableEntity,
	dErrors.CodeInvalidID:              http.StatusBadRequest,
	dErrors.CodeMissingRequiredField:   http.StatusBadRequest,
	dErrors.CodeMissingReason:          http.StatusBadRequest,
	dErrors.CodeValidation:             http.StatusBadRequest,
	dErrors.CodeBadRequest:             http.StatusBadRequest,
	dErrors.CodeTimeout:                http.StatusGatewayTimeout,
	dErrors.CodeInternal:               http.StatusInternalServerError,
}

// WriteError renders a coded error. Internal errors omit the description so
// store details never leak to clients; every other code is recoverable by the
// caller and includes the message verbatim.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	resp := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, resp)
}

// WriteJSON renders v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Decode parses a JSON request body into T. A malformed body yields a
// CodeBadRequest error ready for WriteError.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return v, nil
}
