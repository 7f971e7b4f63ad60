package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"hermannm.dev/gaquery/log"
	"hermannm.dev/gaquery/query"
	"hermannm.dev/wrap"
)

func sendClientError(res http.ResponseWriter, err error, message string) {
	sendError(res, err, message, http.StatusBadRequest)
}

func sendServerError(res http.ResponseWriter, err error, message string) {
	sendError(res, err, message, http.StatusInternalServerError)
}

// Picks the status code from the kind of query error.
func sendQueryError(res http.ResponseWriter, err error, message string) {
	kind, ok := query.KindOf(err)
	if !ok {
		sendServerError(res, err, message)
		return
	}

	switch kind {
	case query.InvalidArgument:
		sendError(res, err, message, http.StatusBadRequest)
	case query.InvalidState:
		sendError(res, err, message, http.StatusConflict)
	case query.UpstreamFailure, query.AuthFailure:
		sendError(res, err, message, http.StatusBadGateway)
	default:
		sendServerError(res, err, message)
	}
}

func sendError(res http.ResponseWriter, err error, message string, statusCode int) {
	if err != nil {
		if message == "" {
			message = err.Error()
		} else {
			message = wrap.Error(err, message).Error()
		}
	}

	if statusCode >= http.StatusInternalServerError {
		log.Warn("request failed", slog.Int("status", statusCode), slog.String("error", message))
	} else {
		log.Debug("rejected request", slog.Int("status", statusCode), slog.String("error", message))
	}

	http.Error(res, message, statusCode)
}

func sendJSON(res http.ResponseWriter, value any) {
	body, err := json.Marshal(value)
	if err != nil {
		sendServerError(res, err, "failed to serialize response")
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)
	res.Write(body)
}
