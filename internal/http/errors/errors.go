package errors

import (
	"encoding/json"
	"net/http"
)

// WriteError renders err as the standard JSON error body. Anything that is
// not an *AppError is collapsed into a generic internal error first, so
// unclassified failures never leak details to the client.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	}{appErr.Code, appErr.Message, appErr.Detail})
}
