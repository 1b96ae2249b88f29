package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/roomsched/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenResolver     middleware.TokenResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPMetricsRecorder // nilならHTTPメトリクスを記録しない
	MetricsHandler    http.Handler                   // nilなら /metrics を公開しない
	HealthChecker     Pinger                         // nilならDB疎通確認を行わない

	// 認証
	AuthService AuthServiceInterface

	// 会議室
	RoomService RoomServiceInterface

	// 予約
	AppointmentService AppointmentServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → (SessionGate → RateLimit(General))
//
// /login、/health、/metrics はセッションゲートの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	roomHandler := NewRoomHandler(deps.RoomService)
	apptHandler := NewAppointmentHandler(deps.AppointmentService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// POST /login - クライアントIP単位のログイン専用レート制限
	r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: SessionGate → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionGate(deps.TokenResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/me", authHandler.Me)
		r.Get("/rooms", roomHandler.ListRooms)

		r.Route("/appointments", func(r chi.Router) {
			// POST /appointments - 予約作成（予約専用レート制限を追加）
			r.With(deps.RateLimiter.BookingMiddleware()).Post("/", apptHandler.CreateAppointment)
			r.Get("/", apptHandler.ListAppointments)
			r.Delete("/{id}", apptHandler.CancelAppointment)
		})
	})

	return r
}
