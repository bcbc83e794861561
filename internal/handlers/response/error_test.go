package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/testhub.net/internal/static/errs"
)

func TestFromError(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("module x: %w", errs.NotFound):       http.StatusNotFound,
		fmt.Errorf("busy: %w", errs.Conflict):           http.StatusConflict,
		fmt.Errorf("bad: %w", errs.InvalidArgument):     http.StatusBadRequest,
		fmt.Errorf("enqueue: %w", errs.QueueFull):       http.StatusServiceUnavailable,
		errors.New("database is on fire"):               http.StatusInternalServerError,
		fmt.Errorf("report: %w", errs.ReportTerminated): http.StatusConflict,
	}
	for err, code := range cases {
		assert.Equal(t, code, FromError(err).StatusCode, err.Error())
	}
	assert.Equal(t, "internal error", FromError(errors.New("secret detail")).Message)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrorMessage{Message: "nope", StatusCode: http.StatusNotFound})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"nope","status_code":404}`, rec.Body.String())
}
