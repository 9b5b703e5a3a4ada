//go:build !integration

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"student-writer-backend/internal/domain"
	"student-writer-backend/internal/domain/model"
	"student-writer-backend/internal/domain/ports/adapter"
	"student-writer-backend/internal/domain/ports/repository"
)

// --- Stub use cases (the web layer only sees the interfaces) ---

type stubPaymentUC struct {
	StartFunc   func(ctx context.Context, itemName string, amount int64, orderID string) (*model.PaymentOrder, adapter.CheckoutSession, error)
	ConfirmFunc func(ctx context.Context, tid, orderID, pgToken string) (*model.RedemptionCode, error)
}

func (s *stubPaymentUC) Start(ctx context.Context, itemName string, amount int64, orderID string) (*model.PaymentOrder, adapter.CheckoutSession, error) {
	if s.StartFunc != nil {
		return s.StartFunc(ctx, itemName, amount, orderID)
	}
	return &model.PaymentOrder{OrderID: orderID}, adapter.CheckoutSession{TID: "T1", RedirectPCURL: "https://pg.example/pay/1"}, nil
}

func (s *stubPaymentUC) Confirm(ctx context.Context, tid, orderID, pgToken string) (*model.RedemptionCode, error) {
	if s.ConfirmFunc != nil {
		return s.ConfirmFunc(ctx, tid, orderID, pgToken)
	}
	return &model.RedemptionCode{ID: "id-1", Code: "CODE-AB12CD34", Quota: 100}, nil
}

type stubCodeUC struct {
	ValidateFunc func(ctx context.Context, code string) (*model.RedemptionCode, error)
	ConsumeFunc  func(ctx context.Context, code string) (int, error)
}

func (s *stubCodeUC) Issue(ctx context.Context, tx repository.Tx, quota int) (*model.RedemptionCode, error) {
	return &model.RedemptionCode{ID: "id-1", Code: "CODE-AB12CD34", Quota: quota}, nil
}

func (s *stubCodeUC) Validate(ctx context.Context, code string) (*model.RedemptionCode, error) {
	if s.ValidateFunc != nil {
		return s.ValidateFunc(ctx, code)
	}
	return nil, domain.ErrNotFound
}

func (s *stubCodeUC) Consume(ctx context.Context, code string) (int, error) {
	if s.ConsumeFunc != nil {
		return s.ConsumeFunc(ctx, code)
	}
	return 0, domain.ErrNotFound
}

func (s *stubCodeUC) IssueTestCode(ctx context.Context) (*model.RedemptionCode, error) {
	return &model.RedemptionCode{ID: "id-test", Code: "TEST-100", Quota: 100}, nil
}

type stubPromptUC struct {
	GenerateFunc func(ctx context.Context, code, clientKey string, req model.PromptRequest) (*model.PromptResult, error)
}

func (s *stubPromptUC) Generate(ctx context.Context, code, clientKey string, req model.PromptRequest) (*model.PromptResult, error) {
	if s.GenerateFunc != nil {
		return s.GenerateFunc(ctx, code, clientKey, req)
	}
	return &model.PromptResult{Prompt: "prompt", TokenCount: 42, Remaining: 9}, nil
}

type serverDeps struct {
	payment *stubPaymentUC
	code    *stubCodeUC
	prompt  *stubPromptUC
}

func newTestServer(t *testing.T) (*Server, *serverDeps) {
	t.Helper()
	deps := &serverDeps{
		payment: &stubPaymentUC{},
		code:    &stubCodeUC{},
		prompt:  &stubPromptUC{},
	}
	logger := zerolog.Nop()
	auth := NewAuthManager("test-secret", false, 30*time.Minute)
	srv := NewServer(deps.payment, deps.code, deps.prompt, auth, "test-secret", &logger)
	return srv, deps
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:51234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandleCreatePayment(t *testing.T) {
	t.Run("should return the redirect URL and tid", func(t *testing.T) {
		srv, _ := newTestServer(t)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/create_payment",
			map[string]any{"item_name": "이용권 100회", "amount": 5000, "order_id": "order-1"})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		pg, ok := body["pg_response"].(map[string]any)
		if !ok {
			t.Fatalf("missing pg_response in %v", body)
		}
		if pg["next_redirect_pc_url"] != "https://pg.example/pay/1" {
			t.Errorf("unexpected redirect url: %v", pg["next_redirect_pc_url"])
		}
		if pg["tid"] != "T1" {
			t.Errorf("unexpected tid: %v", pg["tid"])
		}
	})

	t.Run("should reject a non-positive amount", func(t *testing.T) {
		srv, _ := newTestServer(t)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/create_payment",
			map[string]any{"item_name": "x", "amount": 0})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("should surface provider failures as 502 with the provider status", func(t *testing.T) {
		srv, deps := newTestServer(t)
		deps.payment.StartFunc = func(ctx context.Context, itemName string, amount int64, orderID string) (*model.PaymentOrder, adapter.CheckoutSession, error) {
			return nil, adapter.CheckoutSession{}, &domain.ProviderError{StatusCode: 400, Body: "bad cid"}
		}
		rec := doJSON(t, srv.Router(), http.MethodPost, "/create_payment",
			map[string]any{"item_name": "x", "amount": 5000})
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["status_code"] != float64(400) {
			t.Errorf("expected provider status 400, got %v", body["status_code"])
		}
	})

	t.Run("should reject a reused order id with 409", func(t *testing.T) {
		srv, deps := newTestServer(t)
		deps.payment.StartFunc = func(ctx context.Context, itemName string, amount int64, orderID string) (*model.PaymentOrder, adapter.CheckoutSession, error) {
			return nil, adapter.CheckoutSession{}, domain.ErrAlreadyExists
		}
		rec := doJSON(t, srv.Router(), http.MethodPost, "/create_payment",
			map[string]any{"item_name": "x", "amount": 5000, "order_id": "dup"})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("should reject a malformed body", func(t *testing.T) {
		srv, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/create_payment", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleApprove(t *testing.T) {
	t.Run("should render the issued code on success", func(t *testing.T) {
		srv, deps := newTestServer(t)
		var gotTID, gotOrder, gotToken string
		deps.payment.ConfirmFunc = func(ctx context.Context, tid, orderID, pgToken string) (*model.RedemptionCode, error) {
			gotTID, gotOrder, gotToken = tid, orderID, pgToken
			return &model.RedemptionCode{Code: "CODE-AB12CD34", Quota: 100}, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/payment/approve?pg_token=tok&order_id=order-1&tid=T1", nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotTID != "T1" || gotOrder != "order-1" || gotToken != "tok" {
			t.Errorf("confirm called with %q %q %q", gotTID, gotOrder, gotToken)
		}
		page := rec.Body.String()
		if !strings.Contains(page, "CODE-AB12CD34") {
			t.Error("result page must show the issued code")
		}
		if !strings.Contains(page, "잔여 횟수: 100") {
			t.Error("result page must show the remaining quota")
		}
	})

	t.Run("should reject missing query parameters", func(t *testing.T) {
		srv, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/payment/approve?order_id=order-1", nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("should render a failure page when confirmation fails", func(t *testing.T) {
		srv, deps := newTestServer(t)
		deps.payment.ConfirmFunc = func(ctx context.Context, tid, orderID, pgToken string) (*model.RedemptionCode, error) {
			return nil, &domain.ProviderError{StatusCode: 400, Body: "declined"}
		}
		req := httptest.NewRequest(http.MethodGet, "/payment/approve?pg_token=tok&order_id=order-1&tid=T1", nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "CODE-") {
			t.Error("failure page must not leak a code")
		}
	})
}

func TestHandleCodeLookup(t *testing.T) {
	t.Run("should return code and quota", func(t *testing.T) {
		srv, deps := newTestServer(t)
		deps.code.ValidateFunc = func(ctx context.Context, code string) (*model.RedemptionCode, error) {
			if code != "CODE-AB12CD34" {
				return nil, domain.ErrNotFound
			}
			return &model.RedemptionCode{Code: code, Quota: 7}, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/api/code/CODE-AB12CD34", nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["code"] != "CODE-AB12CD34" || body["quota"] != float64(7) {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("should return 404 for an unknown code", func(t *testing.T) {
		srv, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/api/code/CODE-FFFFFFFF", nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["error"] != "not_found" {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("should return an exhausted code with quota zero", func(t *testing.T) {
		srv, deps := newTestServer(t)
		deps.code.ValidateFunc = func(ctx context.Context, code string) (*model.RedemptionCode, error) {
			return &model.RedemptionCode{Code: code, Quota: 0}, nil
		}
		req := httptest.NewRequest(http.MethodGet, "/api/code/CODE-AB12CD34", nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("exhausted is not not_found; expected 200, got %d", rec.Code)
		}
		if body := decodeBody(t, rec); body["quota"] != float64(0) {
			t.Errorf("unexpected body: %v", body)
		}
	})
}

func TestHandleGenerate(t *testing.T) {
	reqBody := map[string]any{
		"code":       "CODE-AB12CD34",
		"activities": []string{"탐구 보고서 작성"},
		"length":     400,
	}

	t.Run("should return prompt, tokens and remaining quota", func(t *testing.T) {
		srv, _ := newTestServer(t)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/generate", reqBody)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["prompt"] != "prompt" || body["token_count"] != float64(42) || body["remaining"] != float64(9) {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("should map domain errors to HTTP statuses", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{domain.ErrNotFound, http.StatusNotFound, "not_found"},
			{domain.ErrQuotaExhausted, http.StatusConflict, "quota_exhausted"},
			{domain.ErrFreeTierExhausted, http.StatusTooManyRequests, "free_tier_exhausted"},
		}
		for _, tc := range cases {
			srv, deps := newTestServer(t)
			deps.prompt.GenerateFunc = func(ctx context.Context, code, clientKey string, req model.PromptRequest) (*model.PromptResult, error) {
				return nil, tc.err
			}
			rec := doJSON(t, srv.Router(), http.MethodPost, "/api/generate", reqBody)
			if rec.Code != tc.status {
				t.Errorf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
				continue
			}
			if body := decodeBody(t, rec); body["error"] != tc.code {
				t.Errorf("%v: expected error %q, got %v", tc.err, tc.code, body["error"])
			}
		}
	})

	t.Run("should pass the client IP as the free-tier key", func(t *testing.T) {
		srv, deps := newTestServer(t)
		var gotKey string
		deps.prompt.GenerateFunc = func(ctx context.Context, code, clientKey string, req model.PromptRequest) (*model.PromptResult, error) {
			gotKey = clientKey
			return &model.PromptResult{Prompt: "p", Remaining: -1}, nil
		}
		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/generate",
			map[string]any{"activities": []string{"x"}, "length": 300})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotKey != "10.0.0.1" {
			t.Errorf("expected client key 10.0.0.1, got %q", gotKey)
		}
		// The free tier never exposes a remaining count.
		if body := decodeBody(t, rec); body["remaining"] != nil {
			t.Errorf("free tier must omit remaining, got %v", body["remaining"])
		}
	})
}

func TestAdminRoutes(t *testing.T) {
	t.Run("should reject issue_test_code without a session", func(t *testing.T) {
		srv, _ := newTestServer(t)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/admin/issue_test_code", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("should reject login with a wrong secret", func(t *testing.T) {
		srv, _ := newTestServer(t)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/admin/login", map[string]any{"secret": "wrong"})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("should issue the test code after login", func(t *testing.T) {
		srv, _ := newTestServer(t)
		router := srv.Router()

		login := doJSON(t, router, http.MethodPost, "/admin/login", map[string]any{"secret": "test-secret"})
		if login.Code != http.StatusOK {
			t.Fatalf("login: expected 200, got %d", login.Code)
		}
		token, _ := decodeBody(t, login)["token"].(string)
		if token == "" {
			t.Fatal("expected a session token")
		}

		req := httptest.NewRequest(http.MethodPost, "/admin/issue_test_code", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["code"] != "TEST-100" || body["quota"] != float64(100) {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("should reject a forged session token", func(t *testing.T) {
		srv, _ := newTestServer(t)
		other := NewAuthManager("other-secret", false, time.Minute)
		rec := httptest.NewRecorder()
		forged, err := other.Mint(rec)
		if err != nil {
			t.Fatalf("mint: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/admin/issue_test_code", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		out := httptest.NewRecorder()
		srv.Router().ServeHTTP(out, req)
		if out.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", out.Code)
		}
	})
}
