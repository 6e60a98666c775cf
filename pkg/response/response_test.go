package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	appErrors "github.com/growcoach/jobboard/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Success(ctx, http.StatusCreated, gin.H{"job_id": "abc"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}

	resp := decode(t, rec)
	if !resp.Success {
		t.Fatal("expected success flag to be true")
	}
	if resp.Error != nil {
		t.Fatal("expected no error information")
	}
}

func TestSuccessMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	SuccessMessage(ctx, http.StatusOK, "Application submitted", gin.H{"applicants_count": 1})

	resp := decode(t, rec)
	if resp.Message != "Application submitted" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestSuccessWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	SuccessWithMeta(ctx, http.StatusOK, []string{"a", "b"}, NewMeta(1, 10, 21))

	resp := decode(t, rec)
	if resp.Meta == nil || resp.Meta.Total != 21 {
		t.Fatal("expected metadata to be serialised")
	}
	if resp.Meta.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", resp.Meta.TotalPages)
	}
}

func TestErrorWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, fmt.Errorf("job service: update status: %w", appErrors.ErrForbidden))

	if rec.Code != appErrors.ErrForbidden.StatusCode {
		t.Fatalf("expected status %d got %d", appErrors.ErrForbidden.StatusCode, rec.Code)
	}

	resp := decode(t, rec)
	if resp.Success {
		t.Fatal("expected success to be false")
	}
	if resp.Error == nil || resp.Error.Code != appErrors.ErrForbidden.Code {
		t.Fatal("expected forbidden error code in response")
	}
}

func TestErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/admin/stats", nil)

	Error(ctx, appErrors.Wrap(errors.New("disk full"), "failed to save upload"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d got %d", http.StatusInternalServerError, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Error == nil || resp.Error.Code != "INTERNAL_SERVER_ERROR" {
		t.Fatalf("expected generic internal error, got %+v", resp.Error)
	}
	if resp.Error.Message != "Internal server error" {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
}

func TestErrorWithGenericError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d got %d", http.StatusInternalServerError, rec.Code)
	}
}
