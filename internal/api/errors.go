package api

import (
	"encoding/json"
	"net/http"
)

// apiError carries everything needed to render the error envelope.
type apiError struct {
	status  int
	errType string
	code    string
	message string
	param   string
}

func badRequest(code, message, param string) *apiError {
	return &apiError{
		status:  http.StatusBadRequest,
		errType: "invalid_request_error",
		code:    code,
		message: message,
		param:   param,
	}
}

func notFoundError(message string) *apiError {
	return &apiError{
		status:  http.StatusNotFound,
		errType: "invalid_request_error",
		code:    "not_found",
		message: message,
	}
}

func upstreamUnavailable(message string) *apiError {
	return &apiError{
		status:  http.StatusServiceUnavailable,
		errType: "api_error",
		code:    "upstream_unavailable",
		message: message,
	}
}

func internalError(message string) *apiError {
	return &apiError{
		status:  http.StatusInternalServerError,
		errType: "api_error",
		code:    "internal_error",
		message: message,
	}
}

type errorBody struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// writeError renders the error envelope. Every error surfaced by the API
// goes through here.
func writeError(w http.ResponseWriter, e *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.status)
	json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{
			Type:    e.errType,
			Code:    e.code,
			Message: e.message,
			Param:   e.param,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
