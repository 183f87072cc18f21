package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"financeflow/internal/auth"
	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/lifecycle"
	"financeflow/internal/log"
	"financeflow/internal/middleware/ratelimit"
	"financeflow/internal/middleware/security"
	"financeflow/internal/middleware/trace"
	"financeflow/internal/services"
)

// BudgetAPI is the part of *services.BudgetService the handlers use.
type BudgetAPI interface {
	Summary(ctx context.Context, userID string) (*core.FinanceSummary, error)
	SaveSummary(ctx context.Context, userID string, sum core.FinanceSummary) (core.FinanceSummary, error)
	SetupMonth(ctx context.Context, userID string, monthlyCredit, dailyTarget core.Money) (core.FinanceSummary, error)
	Overview(ctx context.Context, userID string, month core.Month) (ledger.Overview, error)
	MonthRecords(ctx context.Context, userID string, month core.Month) (map[string]core.DailyRecord, error)
	Day(ctx context.Context, userID string, date core.Date) (services.DayView, error)
	Apply(ctx context.Context, userID string, date core.Date, action lifecycle.Action) (services.ActionResult, error)
	Ready(ctx context.Context) error
}

// Options tune the server. Zero values pick the defaults.
type Options struct {
	RateLimit      ratelimit.Config
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	budget   BudgetAPI
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, budget BudgetAPI, tokens *auth.TokenService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	rlConfig := opts.RateLimit
	if rlConfig.RequestsPerMinute <= 0 {
		rlConfig = ratelimit.DefaultConfig()
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, log.FieldError, err.Error())
		}
	}

	s := &Server{
		budget:   budget,
		limiter:  ratelimit.NewLimiter(rlConfig),
		detector: detector,
		tracer:   trace.NewMiddleware(),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/v1/summary", s.handleGetSummary)
	mux.HandleFunc("PUT /api/v1/summary", s.handlePutSummary)
	mux.HandleFunc("POST /api/v1/setup", s.handleSetup)
	mux.HandleFunc("GET /api/v1/overview", s.handleOverview)
	mux.HandleFunc("GET /api/v1/days", s.handleMonthDays)
	mux.HandleFunc("GET /api/v1/days/{date}", s.handleDay)
	mux.HandleFunc("POST /api/v1/days/{date}/actions", s.handleAction)

	// Outermost first.
	chain := []func(http.Handler) http.Handler{
		s.tracer.Middleware,
		log.Middleware(logger, trace.RequestID, detector.ExtractClientIP),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		detector.Middleware(logger),
		s.limiter.Middleware(detector.ExtractClientIP, onRateLimited, http.MethodPost, http.MethodPut),
		auth.Middleware(tokens, onInvalidToken),
	}
	var handler http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics reports middleware counters.
type Metrics struct {
	Trace     trace.Metrics              `json:"trace"`
	RateLimit ratelimit.Metrics          `json:"rateLimit"`
	Security  security.DetectionMetrics `json:"security"`
}

func (s *Server) Metrics() Metrics {
	return Metrics{
		Trace:     s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
}

func onRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(r, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later").Write(w)
}

func onInvalidToken(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(r, http.StatusUnauthorized, CodeInvalidToken, auth.ErrInvalidToken.Error()).
		Header("WWW-Authenticate", `Bearer error="invalid_token"`).
		Write(w)
}
