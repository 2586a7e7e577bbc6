package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "medicare-now/docs"
	"medicare-now/internal/adapters/storage/gatewayrepo"
	"medicare-now/internal/adapters/storage/memory"
	"medicare-now/internal/domain/accounts"
	"medicare-now/internal/domain/careaccess"
	"medicare-now/internal/domain/readings"
	"medicare-now/internal/domain/recommendations"
	"medicare-now/internal/domain/sessions"
	"medicare-now/internal/gateway"
	"medicare-now/internal/middleware"
	"medicare-now/internal/platform/credentials"
	"medicare-now/internal/platform/logger"
	"medicare-now/internal/platform/realtime"
	"medicare-now/internal/ports/auth"
)

const (
	AuthDev    = "dev"
	AuthLocal  = "local"
	AuthRemote = "remote"
)

type Options struct {
	// AuthMode: dev (headers X-Debug-*), local (sesiones propias) o remote (IdP).
	AuthMode       string
	RemoteVerifier auth.AuthVerifier

	// Opcional: si no viene, gateway in-memory con el hub como notifier.
	Gateway *gateway.Gateway
	Hub     *realtime.Hub

	Sessions   sessions.Options
	BcryptCost int
	Thresholds *readings.Thresholds

	Logger logger.Logger
}

func NewRouter(opts Options) (http.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	gw, hub := opts.Gateway, opts.Hub
	if hub == nil {
		hub = realtime.NewHub(log)
	}
	if gw == nil {
		var err error
		gw, err = gateway.New(gateway.Options{
			Realtime: memory.NewTree(),
			Document: memory.NewDocuments(),
			Notifier: hub,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
	}
	hub.Bind(gw)

	// Repos sobre el gateway
	usersRepo := gatewayrepo.NewUsersRepo(gw)
	sessionsRepo := gatewayrepo.NewSessionsRepo(gw)
	readingsRepo := gatewayrepo.NewReadingsRepo(gw)
	recsRepo := gatewayrepo.NewRecommendationsRepo(gw)
	grantsRepo := gatewayrepo.NewGrantsRepo(gw)

	var (
		verifier auth.AuthVerifier
		issuer   accounts.SessionIssuer
	)
	switch opts.AuthMode {
	case AuthDev:
	case AuthLocal, "":
		sessionsSvc, err := sessions.NewService(sessionsRepo, opts.Sessions)
		if err != nil {
			return nil, err
		}
		verifier, issuer = sessionsSvc, sessionsSvc
	case AuthRemote:
		if opts.RemoteVerifier == nil {
			return nil, errors.New("router: remote auth mode requires a verifier")
		}
		verifier = opts.RemoteVerifier
	default:
		return nil, fmt.Errorf("router: unknown auth mode %q", opts.AuthMode)
	}

	thresholds := readings.DefaultThresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}

	// Services por módulo
	accountsSvc := accounts.NewService(usersRepo, credentials.NewBcrypt(opts.BcryptCost), issuer)
	grantsSvc := careaccess.NewService(grantsRepo)
	readingsSvc := readings.NewService(readingsRepo, thresholds)
	recsSvc := recommendations.NewService(recsRepo, grantsSvc)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(middleware.Recover(log))
	r.Use(middleware.AuthContext(verifier, log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/health/backends", backendsHandler(gw))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Get("/realtime", hub.Handler())

	// Rutas por módulo
	accounts.RegisterRoutes(r, accountsSvc, issuer != nil)
	readings.RegisterRoutes(r, readingsSvc, grantsSvc)
	recommendations.RegisterRoutes(r, recsSvc)
	careaccess.RegisterRoutes(r, grantsSvc)

	return r, nil
}

type backendStatus struct {
	Kind   gateway.Kind `json:"kind"`
	Name   string       `json:"name"`
	Status string       `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// backendsHandler godoc
// @Summary Estado de cada backend de persistencia
// @Tags health
// @Produce json
// @Success 200 {array} backendStatus
// @Failure 503 {array} backendStatus
// @Router /health/backends [get]
func backendsHandler(gw *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := http.StatusOK
		out := []backendStatus{}
		for _, st := range gw.Ping(r.Context()) {
			bs := backendStatus{Kind: st.Kind, Name: st.Name, Status: "ok"}
			if st.Err != nil {
				bs.Status = "unavailable"
				bs.Error = st.Err.Error()
				code = http.StatusServiceUnavailable
			}
			out = append(out, bs)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(out)
	}
}
