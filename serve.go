package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore/internal/db"
	"bookstore/internal/events"
	"bookstore/internal/metrics"
	"bookstore/internal/router"
	"bookstore/internal/services"
	"bookstore/internal/storage"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog and account services in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), true, true)
		},
	}
}

func newServeCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-catalog",
		Short: "Run the catalog service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), true, false)
		},
	}
}

func newServeAccountsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-accounts",
		Short: "Run the account service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), false, true)
		},
	}
}

func serve(ctx context.Context, catalog, accounts bool) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Migrate {
		if err := db.RunMigrations(a.db, a.log); err != nil {
			return err
		}
	}

	auth := services.NewAuthService(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL, a.log)

	var servers []*http.Server
	if catalog {
		srv, closeFn, err := a.catalogServer(ctx, auth)
		if err != nil {
			return err
		}
		defer closeFn()
		servers = append(servers, srv)
	}
	if accounts {
		servers = append(servers, a.accountsServer(auth))
	}

	return runServers(ctx, a.log, servers...)
}

func (a *app) catalogServer(ctx context.Context, auth *services.AuthService) (*http.Server, func(), error) {
	log := a.log.With().Str("service", "catalog").Logger()

	store, err := newArtifactStore(ctx, a, log)
	if err != nil {
		return nil, nil, err
	}

	var publisher events.Publisher = events.Nop{}
	if len(a.cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewProducer(a.cfg.Kafka.Brokers)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to kafka: %w", err)
		}
		publisher = events.NewKafkaPublisher(producer, a.cfg.Kafka.Topic, log)
		log.Info().Strs("brokers", a.cfg.Kafka.Brokers).Str("topic", a.cfg.Kafka.Topic).Msg("Publishing purchase events")
	}
	closeFn := func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}

	m := metrics.New("catalog")
	books := services.NewBookService(a.db, store, publisher, m, log)
	handler := router.SetupCatalogRouter(a.cfg, router.Catalog{
		Books:   books,
		Auth:    auth,
		Store:   store,
		Metrics: m,
	}, log)

	return newHTTPServer(":"+a.cfg.Server.CatalogPort, handler), closeFn, nil
}

func (a *app) accountsServer(auth *services.AuthService) *http.Server {
	log := a.log.With().Str("service", "accounts").Logger()

	users := services.NewUserService(a.db, log)
	handler := router.SetupAccountsRouter(a.cfg, router.Accounts{
		Users:   users,
		Auth:    auth,
		Metrics: metrics.New("accounts"),
	}, log)

	return newHTTPServer(":"+a.cfg.Server.AccountsPort, handler)
}

func newArtifactStore(ctx context.Context, a *app, log zerolog.Logger) (storage.ArtifactStore, error) {
	s := a.cfg.Storage
	switch s.Backend {
	case "", "local":
		log.Info().Str("dir", s.UploadFolder).Msg("Storing images on local disk")
		return storage.NewLocalStore(s.UploadFolder, s.URLPrefix)
	case "minio":
		log.Info().Str("endpoint", s.MinioEndpoint).Str("bucket", s.MinioBucket).Msg("Storing images in MinIO")
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  s.MinioEndpoint,
			AccessKey: s.MinioAccessKey,
			SecretKey: s.MinioSecretKey,
			Bucket:    s.MinioBucket,
			UseSSL:    s.MinioUseSSL,
			URLPrefix: s.URLPrefix,
		}, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Backend)
	}
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// runServers serves until SIGINT/SIGTERM or until one server fails, then
// shuts every server down.
func runServers(ctx context.Context, log zerolog.Logger, servers ...*http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			log.Info().Str("addr", srv.Addr).Msg("Server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Str("addr", srv.Addr).Msg("Graceful shutdown failed")
				return err
			}
			log.Info().Str("addr", srv.Addr).Msg("Server stopped")
			return nil
		})
	}
	return g.Wait()
}
