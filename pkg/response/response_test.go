package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/course-platform-go/pkg/apperrors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/test", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSuccess(t *testing.T) {
	c, w := newContext()
	Success(c, http.StatusOK, gin.H{"count": 1}, "ok", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ok", body["message"])
	assert.Equal(t, map[string]interface{}{"count": float64(1)}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestError_AppErrorExposesCodeAndFields(t *testing.T) {
	c, w := newContext()
	err := apperrors.Validation("Invalid lesson", map[string]string{"videoLink": "must be a www.youtube.com link"})

	AppError(slog.New(slog.NewTextHandler(io.Discard, nil)), c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, map[string]interface{}{
		"code":   "validation_error",
		"fields": map[string]interface{}{"videoLink": "must be a www.youtube.com link"},
	}, body["error"])
}

func TestError_InternalErrorIsNotLeaked(t *testing.T) {
	c, w := newContext()
	ErrorWithLog(nil, c, http.StatusInternalServerError, "Internal server error", errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
	assert.Equal(t, map[string]interface{}{"code": "internal_error"}, decode(t, w)["error"])
}

func TestError_PlainClientErrorGetsStatusCode(t *testing.T) {
	c, w := newContext()
	Error(c, http.StatusNotFound, "Course not found", errors.New("record not found"))

	assert.Equal(t, map[string]interface{}{"code": "not_found"}, decode(t, w)["error"])
}

func TestSuccessNoCache(t *testing.T) {
	c, w := newContext()
	SuccessNoCache(c, http.StatusOK, nil, "")

	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
}
