package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func TestHandle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		method string
		err    error
		status int
		code   string
	}{
		{"ok", http.MethodGet, nil, http.StatusOK, ""},
		{"created", http.MethodPost, nil, http.StatusCreated, ""},
		{"not found", http.MethodGet, fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"duplicate", http.MethodPost, gorm.ErrDuplicatedKey, http.StatusConflict, ErrCodeDuplicateResource},
		{"validation", http.MethodPost, fmt.Errorf("%w: name is required", ErrValidation), http.StatusBadRequest, ErrCodeValidationFailed},
		{"unexpected", http.MethodGet, errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(tt.method, "/", nil)

			Handle(c, gin.H{"id": 1}, tt.err)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var body Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Timestamp.IsZero() {
				t.Error("timestamp missing")
			}
			if tt.code == "" {
				if !body.Success || body.Error != nil {
					t.Errorf("expected success envelope, got %+v", body)
				}
				return
			}
			if body.Success || body.Error == nil || body.Error.Code != tt.code {
				t.Errorf("expected %s error envelope, got %+v", tt.code, body)
			}
		})
	}
}
