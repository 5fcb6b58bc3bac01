package api

import (
	"net/http"

	"devspace-operator/errdefs"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func withRequestLogging(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpLogger.Info("api request",
			"request.Id", uuid.New().String(),
			"request.Method", r.Method,
			"request.RequestURI", r.RequestURI,
			"request.ContentLength", r.ContentLength,
			"request.RemoteAddr", r.RemoteAddr,
			"request.Proto", r.Proto,
		)
		handler.ServeHTTP(w, r)
	})
}

// callerId is the identity of the requester. Token verification happens
// upstream; the header is trusted here.
func callerId(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

func writeJson(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		httpLogger.Error("failed to json encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errdefs.IsNotFound(err):
		status = http.StatusNotFound
	case errdefs.IsConflict(err):
		status = http.StatusConflict
	case errdefs.IsValidation(err):
		status = http.StatusBadRequest
	case errdefs.IsAuthorization(err):
		status = http.StatusForbidden
	case errdefs.IsInfrastructure(err):
		status = http.StatusBadGateway
	}
	writeJson(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, target any) error {
	err := json.NewDecoder(r.Body).Decode(target)
	if err != nil {
		return errdefs.Validation("malformed request body: %s", err)
	}
	return nil
}
