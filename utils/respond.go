package utils

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope is the response shape shared with the shop backend.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// RespondWithJSON writes data in a success envelope.
func RespondWithJSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data})
}

// RespondWithMessage writes a success envelope that carries only a message.
func RespondWithMessage(w http.ResponseWriter, status int, msg string) {
	write(w, status, Envelope{Success: true, Message: msg})
}

// RespondWithError writes a failure envelope. data may be nil.
func RespondWithError(w http.ResponseWriter, status int, msg string, data any) {
	write(w, status, Envelope{Success: false, Message: msg, Data: data})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
