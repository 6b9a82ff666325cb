package common

import (
	"encoding/json"
	"net/http"
)

const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// Envelope is the body of every non-empty JSON response.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func RespondWithSuccess(w http.ResponseWriter, code int, message string, data any) {
	RespondWithJSON(w, code, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

func RespondWithErrorMessage(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Envelope{Status: StatusError, Message: message})
}

// RespondWithError derives the status code from err.
func RespondWithError(w http.ResponseWriter, err error) {
	RespondWithErrorMessage(w, HTTPStatusFromError(err), err.Error())
}

func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"Error","message":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
