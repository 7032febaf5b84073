package http

import (
	"errors"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/goccy/go-json"

	oerrors "github.com/gearshop/gearshop/pkg/errors"
	"github.com/gearshop/gearshop/pkg/metrics"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	// The status line is already out; an encode failure here can only be
	// dropped.
	_ = json.NewEncoder(w).Encode(body)
}

func statusForCode(code oerrors.Code) int {
	switch code {
	case oerrors.CodeUnauthenticated, oerrors.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case oerrors.CodeForbidden:
		return http.StatusForbidden
	case oerrors.CodeNotFound:
		return http.StatusNotFound
	case oerrors.CodeInvalidRole, oerrors.CodeValidation:
		return http.StatusBadRequest
	case oerrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger logr.Logger, err error) {
	code := oerrors.CodeOf(err)
	status := statusForCode(code)

	message := err.Error()
	var oerr *oerrors.Error
	if errors.As(err, &oerr) && oerr.Message != "" {
		message = oerr.Message
	}
	if status == http.StatusInternalServerError {
		// Internal details stay in the log, not the response.
		logger.Error(err, "request failed")
		message = "internal server error"
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		metrics.RecordAuthFailure(string(code))
	}

	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:    string(code),
		Message: message,
	}})
}

func decodeBody(r *http.Request, dest any) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return oerrors.Wrap(oerrors.CodeValidation, "malformed request body", err)
	}
	return nil
}
