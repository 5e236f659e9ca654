package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxRequestBody = 1 << 20

// problem is the error document for boundary-level failures that occur before
// the operation produced any device state.
type problem struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondProblem(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, problem{Status: status, Detail: detail})
}

func respondProblemf(w http.ResponseWriter, status int, format string, args ...any) {
	respondProblem(w, status, fmt.Sprintf(format, args...))
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}
