package handlers_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/techdiscoveria/discoveria/internal/domain/payment"
	"github.com/techdiscoveria/discoveria/internal/domain/product"
	"github.com/techdiscoveria/discoveria/internal/http/handlers"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	r := gin.New()
	r.POST("/userProducts", func(ctx *gin.Context) {
		var req product.CreateProductRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})

	w := doRequest(r, http.MethodPost, "/userProducts", `{"ownerEmail":"not-an-email"}`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	wantRules := map[string]string{
		"productName": "required",
		"ownerEmail":  "email",
	}

	found := map[string]handlers.FieldError{}
	for _, fieldErr := range resp.Error.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for field, rule := range wantRules {
		fieldErr, ok := found[field]
		if !ok {
			t.Fatalf("missing field error for %q: %+v", field, resp.Error.Details.Fields)
		}
		if fieldErr.Rule != rule {
			t.Fatalf("field %q rule mismatch: got %q want %q", field, fieldErr.Rule, rule)
		}
		if fieldErr.Message == "" {
			t.Fatalf("field %q should include a non-empty message", field)
		}
	}
}

func TestBindJSON_TypeMismatchUsesJSONFieldNames(t *testing.T) {
	r := gin.New()
	r.POST("/payments", func(ctx *gin.Context) {
		var req payment.CreatePaymentRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})

	w := doRequest(r, http.MethodPost, "/payments", `{"price":"ten","transactionId":"pi_1"}`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("expected invalid_json_type, got %q", resp.Error.Details.JSON)
	}
	if resp.Error.Details.Field != "price" {
		t.Fatalf("expected detail field to be price, got %q", resp.Error.Details.Field)
	}
	if len(resp.Error.Details.Fields) == 0 {
		t.Fatalf("expected at least one field error in details.fields")
	}

	fieldErr := resp.Error.Details.Fields[0]
	if fieldErr.Rule != "type" || fieldErr.Message == "" {
		t.Fatalf("unexpected fields[0]: %+v", fieldErr)
	}
}

func TestBindJSON_SyntaxAndEmptyBody(t *testing.T) {
	r := gin.New()
	r.POST("/jwt", func(ctx *gin.Context) {
		var req payment.CreateIntentRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusOK)
	})

	tests := []struct {
		name     string
		body     string
		wantJSON string
	}{
		{name: "syntax", body: `{"price":`, wantJSON: "invalid_json_syntax"},
		{name: "empty", body: "", wantJSON: "empty_body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/jwt", tt.body, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("got status %d body=%s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantJSON) {
				t.Fatalf("expected %q in body %s", tt.wantJSON, w.Body.String())
			}
		})
	}
}
