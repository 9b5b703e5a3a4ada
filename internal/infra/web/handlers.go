package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"student-writer-backend/internal/domain"
	"student-writer-backend/internal/domain/model"
	"student-writer-backend/internal/infra/logging"
	"student-writer-backend/internal/infra/metrics"
)

type createPaymentRequest struct {
	ItemName string `json:"item_name"`
	Amount   int64  `json:"amount"`
	OrderID  string `json:"order_id"`
}

type pgResponse struct {
	NextRedirectPCURL     string `json:"next_redirect_pc_url"`
	NextRedirectMobileURL string `json:"next_redirect_mobile_url,omitempty"`
	TID                   string `json:"tid"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", 0)
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive", 0)
		return
	}

	_, session, err := s.paymentUC.Start(ctx, req.ItemName, req.Amount, req.OrderID)
	if err != nil {
		var pe *domain.ProviderError
		switch {
		case errors.As(err, &pe):
			writeError(w, http.StatusBadGateway, pe.Body, pe.StatusCode)
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "order_id already used", 0)
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "invalid payment parameters", 0)
		default:
			logging.With(ctx, s.log).Error().Err(err).Msg("create payment failed")
			writeError(w, http.StatusInternalServerError, "payment initiation failed", 0)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"pg_response": pgResponse{
			NextRedirectPCURL:     session.RedirectPCURL,
			NextRedirectMobileURL: session.RedirectMobileURL,
			TID:                   session.TID,
		},
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	q := r.URL.Query()
	pgToken := q.Get("pg_token")
	orderID := q.Get("order_id")
	tid := q.Get("tid")
	ctx = logging.WithOrderID(ctx, orderID)

	if pgToken == "" || orderID == "" || tid == "" {
		metrics.PaymentApproveRequests.WithLabelValues("fail", "missing_params").Inc()
		s.renderResult(w, http.StatusBadRequest, false, "필수 파라미터가 누락되었습니다.", nil)
		return
	}

	code, err := s.paymentUC.Confirm(ctx, tid, orderID, pgToken)
	if err != nil {
		reason := approveFailReason(err)
		metrics.PaymentApproveRequests.WithLabelValues("fail", reason).Inc()
		metrics.PaymentApproveDuration.WithLabelValues("fail").Observe(time.Since(start).Seconds())
		logging.With(ctx, s.log).Warn().Err(err).Str("reason", reason).Msg("payment confirmation failed")
		s.renderResult(w, http.StatusBadGateway, false, "결제 확인에 실패했습니다. 고객센터에 문의해주세요.", nil)
		return
	}

	metrics.PaymentApproveRequests.WithLabelValues("ok", "").Inc()
	metrics.PaymentApproveDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	msg := fmt.Sprintf("결제 완료. 이용코드: %s. 잔여 횟수: %d. 복사해서 앱에 입력하세요.", code.Code, code.Quota)
	s.renderResult(w, http.StatusOK, true, msg, code)
}

func (s *Server) handleCancelled(w http.ResponseWriter, r *http.Request) {
	s.renderResult(w, http.StatusOK, false, "결제가 취소되었습니다.", nil)
}

func (s *Server) handleFailed(w http.ResponseWriter, r *http.Request) {
	s.renderResult(w, http.StatusOK, false, "결제에 실패했습니다. 다시 시도해주세요.", nil)
}

func (s *Server) handleCodeLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	rc, err := s.codeUC.Validate(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
			writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "not_found"})
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup failed", 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "code": rc.Code, "quota": rc.Quota})
}

type generateRequest struct {
	Code       string   `json:"code"`
	Activities []string `json:"activities"`
	Length     int      `json:"length"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", 0)
		return
	}

	res, err := s.promptUC.Generate(ctx, req.Code, clientKey(r), model.PromptRequest{
		Activities: req.Activities,
		Length:     req.Length,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "not_found"})
		case errors.Is(err, domain.ErrQuotaExhausted):
			writeJSON(w, http.StatusConflict, map[string]any{"ok": false, "error": "quota_exhausted"})
		case errors.Is(err, domain.ErrFreeTierExhausted):
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"ok": false, "error": "free_tier_exhausted"})
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "activities are required", 0)
		default:
			logging.With(ctx, s.log).Error().Err(err).Msg("generate failed")
			writeError(w, http.StatusInternalServerError, "generation failed", 0)
		}
		return
	}

	resp := map[string]any{
		"ok":          true,
		"prompt":      res.Prompt,
		"token_count": res.TokenCount,
	}
	if res.Completion != "" {
		resp["completion"] = res.Completion
	}
	if res.Remaining >= 0 {
		resp["remaining"] = res.Remaining
	}
	writeJSON(w, http.StatusOK, resp)
}

type adminLoginRequest struct {
	Secret string `json:"secret"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", 0)
		return
	}
	if s.apiSecret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.apiSecret)) != 1 {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session mint failed", 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token})
}

func (s *Server) handleIssueTestCode(w http.ResponseWriter, r *http.Request) {
	rc, err := s.codeUC.IssueTestCode(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue failed", 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "code": rc.Code, "quota": rc.Quota})
}

// ----- helpers -----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, providerStatus int) {
	body := map[string]any{"ok": false, "error": msg}
	if providerStatus != 0 {
		body["status_code"] = providerStatus
	}
	writeJSON(w, status, body)
}

// clientKey derives the free-tier bucket key from the caller's IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func approveFailReason(err error) string {
	var pe *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrOrderLocked):
		return "locked"
	case errors.As(err, &pe):
		return "provider_error"
	default:
		return "unknown"
	}
}

var resultPage = template.Must(template.New("result").Parse(`<!doctype html>
<html lang="ko">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{if .OK}}결제 완료{{else}}결제 안내{{end}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
.code{font-size:1.4rem;font-weight:bold;letter-spacing:1px;}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}fail{{end}}">{{if .OK}}✅ 결제 완료{{else}}⚠️ 결제 안내{{end}}</h2>
  <p>{{.Msg}}</p>
  {{if .Code}}<p class="code">{{.Code.Code}}</p><p>잔여 횟수: {{.Code.Quota}}</p>{{end}}
  <div class="small">코드는 다시 표시되지 않으니 지금 복사해 두세요.</div>
</div>
</body>
</html>`))

func (s *Server) renderResult(w http.ResponseWriter, status int, ok bool, msg string, code *model.RedemptionCode) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = resultPage.Execute(w, struct {
		OK   bool
		Msg  string
		Code *model.RedemptionCode
	}{OK: ok, Msg: msg, Code: code})
}
