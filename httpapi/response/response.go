// Package response writes the JSON envelope shared by every tokenauth HTTP handler.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenauth"
)

// SuccessCode is the envelope code of every successful response.
const SuccessCode = "COMMON200"

// Envelope is the body of every JSON response.
type Envelope struct {
	IsSuccess bool      `json:"isSuccess"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Result    any       `json:"result,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OK writes a 200 envelope carrying result.
func OK(w http.ResponseWriter, result any) {
	write(w, http.StatusOK, Envelope{
		IsSuccess: true,
		Code:      SuccessCode,
		Message:   "success",
		Result:    result,
		Timestamp: time.Now().UTC(),
	})
}

// Error writes the envelope for err using tokenauth.CodeOf. Internal error
// text is never written to the client.
func Error(w http.ResponseWriter, err error) {
	code := tokenauth.CodeOf(err)
	write(w, code.HTTPStatus, Envelope{
		IsSuccess: false,
		Code:      code.Code,
		Message:   code.Message,
		Timestamp: time.Now().UTC(),
	})
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
