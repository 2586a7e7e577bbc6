package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"medicare-now/internal/adapters/auth/idp"
	"medicare-now/internal/adapters/device/spp"
	"medicare-now/internal/adapters/storage/gatewayrepo"
	"medicare-now/internal/config"
	"medicare-now/internal/domain/accounts"
	"medicare-now/internal/domain/readings"
	"medicare-now/internal/domain/sessions"
	"medicare-now/internal/platform/credentials"
	"medicare-now/internal/platform/logger"
	"medicare-now/internal/platform/realtime"
	"medicare-now/internal/ports/auth"
	"medicare-now/internal/router"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medicare-now",
		Short:         "MediCare Now API: signos vitales, recomendaciones y accesos médicos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(accountCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Prepara los backends configurados (tablas, índices, buckets)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(config.LoadStorage)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			gw, err := openGateway(ctx, cfg, log, nil)
			if err != nil {
				return err
			}
			defer gw.Close()

			if err := gw.Migrate(ctx); err != nil {
				return err
			}
			log.Info("migrations applied", map[string]any{"realtime": cfg.RealtimeBackend, "document": cfg.DocumentBackend})
			return nil
		},
	}
}

func ingestCmd() *cobra.Command {
	var (
		addr   string
		userID string
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Lee frames del dispositivo, loguea alertas y opcionalmente los guarda",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID = strings.TrimSpace(userID)
			if strings.TrimSpace(addr) == "" || userID == "" {
				return errors.New("--addr and --user are required")
			}

			cfg, log, err := bootstrap(config.LoadStorage)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gw, err := openGateway(ctx, cfg, log, nil)
			if err != nil {
				return err
			}
			defer gw.Close()

			svc := readings.NewService(gatewayrepo.NewReadingsRepo(gw), readings.DefaultThresholds())
			log = log.With(map[string]any{"user_id": userID, "addr": addr})

			bridge, err := spp.New(spp.Options{
				Dialer: spp.TCPDialer{Addr: addr},
				Logger: log,
				Handlers: spp.Handlers{
					OnFrame: func(f readings.Frame) {
						if !save {
							alerts := svc.Evaluate(f)
							log.Info("frame", map[string]any{"pulse": f.Pulse, "temperature": f.Temperature, "humidity": f.Humidity, "alerts": readings.Summary(alerts)})
							return
						}
						rec, err := svc.Record(ctx, userID, f)
						if err != nil {
							log.Error("record reading", map[string]any{"err": err})
							return
						}
						log.Info("reading saved", map[string]any{"id": rec.Reading.ID, "alerts": readings.Summary(rec.Alerts)})
					},
					OnInvalid: func(line string, err error) {
						log.Warn("invalid frame", map[string]any{"line": line, "err": err})
					},
					OnStatus: func(connected bool, err error) {
						log.Info("device status", map[string]any{"connected": connected, "err": err})
					},
				},
			})
			if err != nil {
				return err
			}

			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "host:port del bridge serie/radio")
	cmd.Flags().StringVar(&userID, "user", "", "usuario dueño de las lecturas")
	cmd.Flags().BoolVar(&save, "save", false, "guardar cada frame en health_data")
	return cmd
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Administración de cuentas",
	}

	var (
		name     string
		email    string
		password string
		role     string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crea una cuenta (p.ej. un médico)",
		RunE: func(cmd *cobra.Command, args []string) error {
			role = strings.ToUpper(strings.TrimSpace(role))
			if role != auth.RoleUser && role != auth.RoleMedic {
				return fmt.Errorf("--role must be %s or %s", auth.RoleUser, auth.RoleMedic)
			}

			cfg, log, err := bootstrap(config.LoadStorage)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			gw, err := openGateway(ctx, cfg, log, nil)
			if err != nil {
				return err
			}
			defer gw.Close()

			svc := accounts.NewService(gatewayrepo.NewUsersRepo(gw), credentials.NewBcrypt(cfg.BcryptCost), nil)
			u, err := svc.Create(ctx, accounts.RegisterInput{FullName: name, Email: email, Password: password}, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", u.ID, u.Email, u.Role)
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "nombre completo")
	createCmd.Flags().StringVar(&email, "email", "", "email")
	createCmd.Flags().StringVar(&password, "password", "", "password (mínimo 6 caracteres)")
	createCmd.Flags().StringVar(&role, "role", auth.RoleUser, "USER o MEDIC")

	cmd.AddCommand(createCmd)
	return cmd
}

func runServer() error {
	cfg, log, err := bootstrap(config.Load)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(log)
	defer hub.Close()

	gw, err := openGateway(ctx, cfg, log, hub)
	if err != nil {
		return err
	}
	defer gw.Close()

	if err := gw.Migrate(ctx); err != nil {
		return err
	}

	var remote auth.AuthVerifier
	if cfg.AuthMode == config.AuthRemote {
		client, err := idp.NewClient(idp.Config{
			BaseURL:      cfg.IdPBaseURL,
			APIKey:       cfg.IdPAPIKey,
			APIKeyHeader: cfg.IdPAPIKeyHeader,
			Timeout:      cfg.IdPTimeout,
		})
		if err != nil {
			return err
		}
		remote = idp.NewVerifier(client)
	}

	h, err := router.NewRouter(router.Options{
		AuthMode:       cfg.AuthMode,
		RemoteVerifier: remote,
		Gateway:        gw,
		Hub:            hub,
		Sessions: sessions.Options{
			Secret: cfg.JWTSecret,
			Issuer: cfg.JWTIssuer,
			TTL:    cfg.SessionTTL,
		},
		BcryptCost: cfg.BcryptCost,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	// sin WriteTimeout global: /realtime mantiene la conexión abierta
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": cfg.Addr(), "auth_mode": cfg.AuthMode})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// bootstrap carga la config con load (completa para serve, solo storage
// para el resto de los comandos) y arma el logger.
func bootstrap(load func() (config.Config, error)) (config.Config, logger.Logger, error) {
	cfg, err := load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	return cfg, log, nil
}
