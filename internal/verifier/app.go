// Package verifier initializes and runs the verification service: the
// registry database, the object store client, the stage pipeline and the
// HTTP endpoint.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/photolock/photolock/internal/logging"
	"github.com/photolock/photolock/internal/objectstore"
	"github.com/photolock/photolock/internal/verifier/config"
	"github.com/photolock/photolock/internal/verifier/httpapi"
	"github.com/photolock/photolock/internal/verifier/notify"
	"github.com/photolock/photolock/internal/verifier/registry"
	"github.com/photolock/photolock/internal/verifier/verify"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	ctx := context.Background()

	manager, err := registry.NewManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := objectstore.NewClient(ctx, objectstore.Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	var notifier verify.Notifier
	if c.SMSGatewayURL != "" {
		notifier = notify.New(c.SMSGatewayURL, c.SMSAccountSID, c.SMSAuthToken, c.SMSFrom)
	}

	service := verify.NewService(store, manager.Cameras(), manager.Records(), manager.Contacts(), notifier, logger)
	server := httpapi.NewServer(service, manager.Cameras(), []byte(c.SecretKey), logger)

	return &App{config: c, logger: logger, server: server}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.server.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "listening", "addr", app.config.EndpointAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting verifier...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
