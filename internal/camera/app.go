// Package camera initializes and runs the camera unit: the biometric
// session controller, the GPS reader, the TPM-backed signer, the durable
// pending queue and the store-and-forward uploader, plus the interactive
// control surface.
package camera

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/photolock/photolock/internal/camera/biometric"
	"github.com/photolock/photolock/internal/camera/capture"
	"github.com/photolock/photolock/internal/camera/cli"
	"github.com/photolock/photolock/internal/camera/config"
	"github.com/photolock/photolock/internal/camera/gps"
	"github.com/photolock/photolock/internal/camera/queue"
	"github.com/photolock/photolock/internal/camera/session"
	"github.com/photolock/photolock/internal/camera/signer"
	"github.com/photolock/photolock/internal/camera/uploader"
	"github.com/photolock/photolock/internal/logging"
	"github.com/photolock/photolock/internal/objectstore"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	controller *session.Controller
	uploader   *uploader.Uploader
	scanner    *biometric.ChanScanner
	gpsReader  *gps.Reader
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	ctx := context.Background()

	store, err := objectstore.NewClient(ctx, objectstore.Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	q, err := queue.New(c.QueueRoot)
	if err != nil {
		return nil, fmt.Errorf("queue init error: %w", err)
	}

	up := uploader.New(store, q, logger, uploader.Config{
		Bucket:        c.S3Bucket,
		ProbeURL:      c.UploadURL,
		DrainInterval: c.DrainInterval,
		ProbeInterval: c.ProbeInterval,
		MaxAttempts:   uint64(c.MaxUploadAttempts),
	})

	var sgn signer.Signer
	if c.LocalKeyPath != "" {
		sgn, err = signer.LoadLocalSigner(c.LocalKeyPath)
		if err != nil {
			return nil, fmt.Errorf("signer init error: %w", err)
		}
	} else {
		sgn = signer.NewTPMSigner(c.TPMKeyHandle)
	}

	gpsReader := gps.NewReader(gps.DevicePort(c.GPSDevice), c.GPSReadTimeout)
	scanner := biometric.NewChanScanner()

	controller := session.NewController(
		session.Config{CameraNumber: c.CameraNumber},
		scanner,
		biometric.Roster(c.Roster),
		&capture.FFmpegStill{Device: c.VideoDevice},
		capture.NewRecorder(c.VideoDevice, c.AudioDevice),
		gpsReader,
		sgn,
		q,
		up,
		logger,
	)

	return &App{
		config:     c,
		logger:     logger,
		controller: controller,
		uploader:   up,
		scanner:    scanner,
		gpsReader:  gpsReader,
	}, nil
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

// watchGPS polls the receiver so the status line can show fix availability
// without waiting for a capture.
func (app *App) watchGPS(ctx context.Context) {
	ticker := time.NewTicker(app.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fix := app.gpsReader.Read(ctx)
			app.controller.SetGPSStatus(fix.Valid)
		case <-ctx.Done():
			return
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting camera unit...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.controller.RunAuthMonitor(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.uploader.WatchConnectivity(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.uploader.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.watchGPS(ctx)
	}()

	cli.Run(ctx, app.controller, app.scanner)
	cancelFunc()

	wg.Wait()
	app.controller.Wait()
}
