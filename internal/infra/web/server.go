package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"student-writer-backend/internal/usecase"
)

type Server struct {
	paymentUC usecase.PaymentUseCase
	codeUC    usecase.CodeUseCase
	promptUC  usecase.PromptUseCase
	auth      *AuthManager
	apiSecret string
	log       *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	codeUC usecase.CodeUseCase,
	promptUC usecase.PromptUseCase,
	auth *AuthManager,
	apiSecret string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		paymentUC: paymentUC,
		codeUC:    codeUC,
		promptUC:  promptUC,
		auth:      auth,
		apiSecret: apiSecret,
		log:       logger,
	}
}

// Router builds the public route table. Admin routes sit behind operator
// authentication and are never reachable without it.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(s.log), RequestLog(s.log), Recover(s.log))

	r.Post("/create_payment", s.handleCreatePayment)
	r.Get("/payment/approve", s.handleApprove)
	r.Get("/payment/cancel", s.handleCancelled)
	r.Get("/payment/fail", s.handleFailed)

	r.Get("/api/code/{code}", s.handleCodeLookup)
	r.Post("/api/generate", s.handleGenerate)

	r.Post("/admin/login", s.handleAdminLogin)
	r.Group(func(admin chi.Router) {
		admin.Use(s.requireOperator)
		admin.Post("/admin/issue_test_code", s.handleIssueTestCode)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// requireOperator admits only requests carrying a valid operator session.
func (s *Server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.apiSecret) == 0 {
			s.log.Error().Msg("admin api secret is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
