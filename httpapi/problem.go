package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

// ProblemDetail is an RFC 7807 problem document.
type ProblemDetail struct {
	Type   string            `json:"type,omitempty"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

const (
	msgEmailRegistered   = "Email already registered"
	msgInvalidCredential = "Invalid email or password"
	msgEmailNotVerified  = "Email not verified"
	msgInvalidToken      = "Invalid or expired token"
	msgUnauthorized      = "Unauthorized"
	msgForbidden         = "Forbidden"
	msgUserNotFound      = "User not found"
	msgMalformedBody     = "Malformed request body"
	msgInternal          = "Something went wrong"
)

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, messageBody{Message: msg})
}

// Problem writes an RFC 7807 response.
func Problem(w http.ResponseWriter, p ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func problem(w http.ResponseWriter, status int, title, detail string) {
	Problem(w, ProblemDetail{Title: title, Status: status, Detail: detail})
}

// RespondError maps engine errors to problem responses. Unknown errors become an opaque
// 500.
func RespondError(w http.ResponseWriter, err error) {
	var verr *authcore.ValidationError
	switch {
	case errors.As(err, &verr):
		Problem(w, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: authcore.ErrValidation.Error(),
			Errors: verr.Fields,
		})
	case errors.Is(err, authcore.ErrValidation):
		problem(w, http.StatusBadRequest, "Validation Failed", authcore.ErrValidation.Error())
	case errors.Is(err, authcore.ErrDuplicateEmail):
		problem(w, http.StatusBadRequest, "Duplicate Email", msgEmailRegistered)
	case errors.Is(err, authcore.ErrInvalidCredential):
		problem(w, http.StatusUnauthorized, "Unauthorized", msgInvalidCredential)
	case errors.Is(err, authcore.ErrEmailNotVerified):
		problem(w, http.StatusForbidden, "Forbidden", msgEmailNotVerified)
	case errors.Is(err, authcore.ErrInvalidOrExpiredToken):
		problem(w, http.StatusBadRequest, "Invalid Token", msgInvalidToken)
	case errors.Is(err, authcore.ErrUnauthorized):
		problem(w, http.StatusUnauthorized, "Unauthorized", msgUnauthorized)
	case errors.Is(err, authcore.ErrUserNotFound):
		problem(w, http.StatusNotFound, "Not Found", msgUserNotFound)
	case errors.Is(err, authcore.ErrEngineNotReady):
		problem(w, http.StatusServiceUnavailable, "Unavailable", msgInternal)
	default:
		problem(w, http.StatusInternalServerError, "Internal Error", msgInternal)
	}
}
