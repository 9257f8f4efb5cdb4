package server

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/meshio/pkg/errors"
)

type errorResponse struct {
	Code      string `json:"code"`
	Op        string `json:"op,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// statusCodes maps error codes to HTTP statuses. The first code found in
// the error chain wins, so a backend failure reports its cause.
var statusCodes = []struct {
	code   errors.Code
	status int
}{
	{errors.ErrCodeUnsupported, http.StatusUnprocessableEntity},
	{errors.ErrCodeBufferUnsupported, http.StatusUnprocessableEntity},
	{errors.ErrCodeInvalidFormat, http.StatusBadRequest},
	{errors.ErrCodeInvalidCells, http.StatusBadRequest},
	{errors.ErrCodeInvalidMesh, http.StatusBadRequest},
	{errors.ErrCodeInvalidUsage, http.StatusBadRequest},
	{errors.ErrCodeInvalidInput, http.StatusBadRequest},
	{errors.ErrCodeInvalidPath, http.StatusBadRequest},
	{errors.ErrCodeUnknownFormat, http.StatusBadRequest},
	{errors.ErrCodeUnknownExtension, http.StatusBadRequest},
	{errors.ErrCodeNotFound, http.StatusNotFound},
}

// statusFor returns the HTTP status for err and the code it matched.
func statusFor(err error) (int, errors.Code) {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.code) {
			return sc.status, sc.code
		}
	}
	return http.StatusInternalServerError, errors.ErrCodeInternal
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	resp := errorResponse{
		Code:      string(code),
		Message:   errors.UserMessage(err),
		RequestID: requestIDFrom(r.Context()),
	}
	switch {
	case errors.IsRead(err):
		resp.Op = string(errors.OpRead)
	case errors.IsWrite(err):
		resp.Op = string(errors.OpWrite)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("convert failed", "err", err, "request_id", resp.RequestID)
		resp.Message = "internal error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
