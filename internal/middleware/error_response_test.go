package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/foodshare/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一エラーフォーマットでレスポンスが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusConflict, model.NewDonationUnavailableError("d1"))

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["code"] != model.ErrCodeDonationUnavailable {
		t.Errorf("code = %v", body["code"])
	}
	if body["category"] != "donation" {
		t.Errorf("category = %v", body["category"])
	}
	if _, ok := body["fields"]; ok {
		t.Error("fields must be omitted for action-level errors")
	}
}

func TestWriteValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *model.ValidationError
		wantCode string
	}{
		{
			name:     "フィールドエラー",
			err:      &model.ValidationError{Fields: map[string]string{"name": "Name is required"}},
			wantCode: model.ErrCodeValidation,
		},
		{
			name:     "メールアドレス重複",
			err:      model.NewEmailAlreadyRegisteredError(),
			wantCode: model.ErrCodeEmailAlreadyRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteValidationError(w, http.StatusBadRequest, tt.err)

			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Category != "validation" {
				t.Errorf("category = %q, want validation", body.Category)
			}
			for field, msg := range tt.err.Fields {
				if body.Fields[field] != msg {
					t.Errorf("fields[%s] = %q, want %q", field, body.Fields[field], msg)
				}
			}
		})
	}
}

// TestWriteInternalServerError は内部情報を含まない汎用メッセージを返すことを検証する。
func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" || body.Category != "system" {
		t.Errorf("unexpected body: %+v", body)
	}
}
