package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"testhub_backend/internal/util"
	"testhub_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"topic required", util.ErrTopicRequired, http.StatusBadRequest},
		{"invalid test type", util.ErrInvalidTestType, http.StatusBadRequest},
		{"invalid answer", util.ErrInvalidAnswer, http.StatusBadRequest},
		{"session not found", util.ErrSessionNotFound, http.StatusNotFound},
		{"question not found", util.ErrQuestionNotFound, http.StatusNotFound},
		{"session completed", util.ErrSessionCompleted, http.StatusConflict},
		{"session in progress", util.ErrSessionInProgress, http.StatusConflict},
		{"already answered", util.ErrAlreadyAnswered, http.StatusConflict},
		{"nothing to retake", util.ErrNothingToRetake, http.StatusConflict},
		{"grading unavailable", util.ErrGradingUnavailable, http.StatusServiceUnavailable},
		{"wrapped grading failure", errors.Join(util.ErrGradingUnavailable, errors.New("upstream timeout")), http.StatusServiceUnavailable},
		{"unexpected error", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(recorder)

			respondError(ctx, tt.err)

			assert.Equal(t, tt.want, recorder.Code)

			var body util.Response
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestRespondError_HidesInternalDetail(t *testing.T) {
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)

	respondError(ctx, errors.New("dsn: user:password@tcp(db:3306)/testhub"))

	var body util.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Message)
	assert.NotContains(t, body.Message, "password")
}
