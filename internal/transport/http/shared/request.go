package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"evalhub/internal/domain"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
)

// CurrentActor resolves the caller or writes a 401.
func CurrentActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return domain.Actor{}, false
	}
	return user.Actor(), true
}

// DecodeJSON decodes the body into dst. An empty body leaves dst untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request payload too large", middleware.GetRequestID(r.Context()))
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}
