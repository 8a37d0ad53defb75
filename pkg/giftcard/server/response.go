package server

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/database/query"
	"github.com/code-payments/gift-protocol/pkg/giftcard"
)

var (
	errInvalidRequest  = errors.New("invalid request")
	errFeatureDisabled = errors.New("feature disabled")
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, errMissingCredentials), errors.Is(err, errInvalidSignature), errors.Is(err, errStaleRequest):
		return http.StatusUnauthorized, "unauthenticated", "validation"
	case errors.Is(err, errReplayedRequest):
		return http.StatusUnauthorized, "replayed_request", "validation"
	case errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, "invalid_request", "validation"
	case errors.Is(err, query.ErrQueryNotSupported):
		return http.StatusBadRequest, "invalid_query", "validation"
	case errors.Is(err, errFeatureDisabled):
		return http.StatusNotFound, "feature_disabled", "not_found"
	case errors.Is(err, giftcard.ErrUnauthorized):
		return http.StatusForbidden, giftcard.ReasonCode(err), giftcard.KindValidation.String()
	}

	kind := giftcard.KindOf(err)

	var status int
	switch kind {
	case giftcard.KindValidation:
		status = http.StatusBadRequest
	case giftcard.KindStateConflict:
		status = http.StatusConflict
	case giftcard.KindResource, giftcard.KindRejected:
		status = http.StatusUnprocessableEntity
	case giftcard.KindNotFound:
		status = http.StatusNotFound
	case giftcard.KindAmbiguous:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	return status, giftcard.ReasonCode(err), kind.String()
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, kind := statusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Warn("failure handling request")
		message = "internal error"
	}

	writeJSON(w, status, &errorBody{
		Error: errorDetail{Code: code, Kind: kind, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.Wrap(errInvalidRequest, err.Error())
	}
	return nil
}
