package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/recipe-api/services"
	"github.com/upb/recipe-api/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "validation error",
			err:             services.ErrInvalidTopN,
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "top_n must be a positive integer",
		},
		{
			name:            "not found error",
			err:             services.NewDomainError(services.ErrorTypeNotFound, "recipe not found", nil),
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "recipe not found",
		},
		{
			name:            "rate limit error",
			err:             services.ErrRateLimitExceeded,
			expectedStatus:  http.StatusTooManyRequests,
			expectedError:   "rate_limit_exceeded",
			expectedMessage: "Rate limit exceeded",
		},
		{
			name:            "unavailable error",
			err:             services.ErrProviderUnavailable,
			expectedStatus:  http.StatusServiceUnavailable,
			expectedError:   "service_unavailable",
			expectedMessage: "Service unavailable",
		},
		{
			name:            "generation failure hides cause",
			err:             services.WrapGeneration("model crashed", errors.New("CUDA out of memory")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "Failed to generate recipe",
		},
		{
			name:            "retrieval failure hides cause",
			err:             services.ErrDimensionMismatch,
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "Failed to generate recipe",
		},
		{
			name:            "unknown error",
			err:             errors.New("secret connection string"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "Failed to generate recipe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, "Failed to generate recipe", logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, "unused", zap.NewNop())

	assert.Empty(t, w.Body.String())
}

func TestHandleServiceError_ValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := services.InvalidArgument("Validation failed", map[string]string{"top_n": "top_n must be greater than 0"})

	HandleServiceError(w, err, "unused", zap.NewNop())

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "top_n must be greater than 0", response.Details["top_n"])
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("validation error with fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := utils.FieldError("top_n", "top_n must be greater than 0")

		HandleValidationError(w, err, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Equal(t, "top_n must be greater than 0", response.Details["top_n"])
	})

	t.Run("decode error", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleValidationError(w, errors.New("invalid character 'x'"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Invalid request body", response.Message)
		assert.Nil(t, response.Details)
	})
}
