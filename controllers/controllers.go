package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"tailorfinder/middleware"
	"tailorfinder/services"
	"tailorfinder/session"
	"tailorfinder/storage"
	"tailorfinder/utils"
)

const maxJSONBody = 1 << 20

// StatsSource reports storage latency per operation.
type StatsSource interface {
	Snapshot() map[string]storage.OpStats
}

var (
	svc   *services.Service
	stats StatsSource
)

func SetService(service *services.Service) {
	svc = service
}

func SetStats(source StatsSource) {
	stats = source
}

// decodeJSON reads a JSON request body into v, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.HandleError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// currentSession is only valid behind middleware.Auth.
func currentSession(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok {
		utils.HandleError(w, http.StatusUnauthorized, "Not signed in")
	}
	return sess, ok
}

// respondError maps service errors to HTTP responses.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.SendJSONResponse(w, http.StatusBadRequest, map[string]interface{}{
			"message": "Make sure you fill all fields correctly",
			"fields":  verr.Fields,
		})
	case errors.Is(err, services.ErrDuplicateEmail):
		utils.HandleError(w, http.StatusConflict, "Owner is already signed up")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.HandleError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, session.ErrInvalidSession):
		utils.HandleError(w, http.StatusUnauthorized, "Invalid or expired session")
	case errors.Is(err, services.ErrOwnerNotFound):
		utils.HandleError(w, http.StatusNotFound, "Owner not found")
	case errors.Is(err, services.ErrRestoreParse):
		utils.HandleError(w, http.StatusBadRequest, err.Error())
	default:
		logrus.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		utils.HandleError(w, http.StatusInternalServerError, "Internal server error")
	}
}
