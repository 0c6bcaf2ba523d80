package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/recipe-api/services"
	"github.com/upb/recipe-api/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses. Client errors
// echo the domain message; server errors respond with fallback and the
// cause is only logged.
func HandleServiceError(w http.ResponseWriter, err error, fallback string, logger *zap.Logger) {
	if err == nil {
		return
	}

	var writeErr error
	switch {
	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, domainMessage(err), services.GetErrorDetails(err))

	case services.IsNotFoundError(err):
		writeErr = utils.WriteError(w, http.StatusNotFound, domainMessage(err), nil)

	case services.IsRateLimitError(err):
		writeErr = utils.WriteTooManyRequests(w, "")

	case services.IsUnavailableError(err):
		logger.Warn("dependency unavailable", zap.Error(err))
		writeErr = utils.WriteServiceUnavailable(w, "")

	default:
		logger.Error("request failed",
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, fallback)
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError writes a 400 for request decoding and validation
// failures
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var writeErr error
	if utils.IsValidationError(err) {
		details := make(map[string]interface{})
		for k, v := range utils.GetValidationFields(err) {
			details[k] = v
		}
		writeErr = utils.WriteBadRequest(w, "Validation failed", details)
	} else {
		writeErr = utils.WriteBadRequest(w, "Invalid request body", nil)
	}

	if writeErr != nil {
		logger.Error("failed to write validation error response", zap.Error(writeErr))
	}
}

func domainMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
