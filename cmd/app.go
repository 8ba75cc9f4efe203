package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"doorman/internal/camera"
	"doorman/internal/config"
	"doorman/internal/connectivity"
	"doorman/internal/console"
	"doorman/internal/handlers"
	"doorman/internal/logger"
	"doorman/internal/mailbox"
	"doorman/internal/repository"
	"doorman/internal/repository/db"
	"doorman/internal/sensor"
	"doorman/internal/server"
	"doorman/internal/service"
	"doorman/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

type app struct {
	v       *viper.Viper
	cfg     config.Config
	log     *logger.Logger
	console *console.Console
}

// runtime holds what a subcommand opened and must release.
type runtime struct {
	services *service.Service
	db       *sql.DB
	camera   camera.Source
	log      *logger.Logger
}

func (rt *runtime) close() {
	if rt.camera != nil {
		if err := rt.camera.Close(); err != nil {
			rt.log.Warnw("camera_close_failed", "err", err)
		}
	}
	if err := rt.db.Close(); err != nil {
		rt.log.Errorw("failed to close sqlite", "err", err)
	}
}

// waitStartup sleeps the boot delay and then blocks until the device is online.
func (a *app) waitStartup(ctx context.Context) error {
	a.log.Infow("startup_delay", "delay", a.cfg.StartupDelay)
	t := time.NewTimer(a.cfg.StartupDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	opts := []connectivity.GateOption{connectivity.WithNotice(os.Stdout)}
	if a.cfg.Interactive {
		opts = append(opts, connectivity.WithPrompt(a.console.Reader()))
	}
	gate := connectivity.NewGate(a.prober(), 0, a.log.Named("gate"), opts...)
	return gate.Wait(ctx)
}

// watchConsole reads operator keys when interactive. The returned channel
// closes once the terminal is back in its original mode.
func (a *app) watchConsole(ctx context.Context, cmds console.Commands) <-chan struct{} {
	done := make(chan struct{})
	if !a.cfg.Interactive {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		a.console.Watch(ctx, cmds)
	}()
	return done
}

func (a *app) prober() *connectivity.Probe {
	return connectivity.NewProbe(a.cfg.Probe.Host, a.cfg.Probe.Port, a.cfg.Probe.Timeout, a.log.Named("probe"))
}

// build opens the journal and wires the service graph. withSensor and
// withCamera select which loops the process runs.
func (a *app) build(ctx context.Context, mbox mailbox.Mailbox, withSensor, withCamera bool) (*runtime, error) {
	conn, err := db.InitDB(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init sqlite: %w", err)
	}

	deps := service.Dependencies{
		Repos:   repository.NewRepository(conn),
		Mailbox: mbox,
		Status:  service.NewStatusFile(a.cfg.JSONPath),
		Local:   storage.NewLocal(a.cfg.Storage.Dir),
		Prober:  a.prober(),
		Metrics: service.NewMetrics(),
		Log:     a.log,
	}

	if a.cfg.BucketName != "" {
		up, err := storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:    a.cfg.BucketName,
			Region:    a.cfg.Storage.Region,
			Endpoint:  a.cfg.Storage.Endpoint,
			AccessKey: a.cfg.Storage.AccessKey,
			SecretKey: a.cfg.Storage.SecretKey,
		}, a.log.Named("s3"))
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		deps.Uploader = up
	} else {
		a.log.Warnw("bucket_name not set; artifacts stay local")
	}

	rt := &runtime{db: conn, log: a.log}
	if withSensor {
		deps.Sensor = sensor.NewSimulated(a.cfg.SimPeriod, a.cfg.SimDwell)
	}
	if withCamera {
		cam := camera.NewSynthetic(a.cfg.Width, a.cfg.Height)
		deps.Camera = cam
		rt.camera = cam
		a.log.Infow("camera_opened", "camera_id", a.cfg.CameraID, "width", a.cfg.Width, "height", a.cfg.Height,
			"mirror", a.cfg.Mirror, "full_screen", a.cfg.FullScreen)
	}

	rt.services = service.NewService(deps, service.Options{
		Detection: service.DetectionConfig{
			UpperC:   a.cfg.MaxTemp,
			LowerC:   a.cfg.MinTemp,
			Tick:     config.Tick(a.cfg.SensorRate),
			Cooldown: a.cfg.Cooldown,
		},
		FrameTick:     config.Tick(a.cfg.FrameRate),
		UploadTimeout: a.cfg.Storage.UploadTimeout,
		SigningKey:    a.cfg.SigningKey,
	})
	return rt, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine. A failure to
// serve cancels the process instead of exiting from the goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger, stop context.CancelFunc) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Errorw("error starting server", "err", err)
			stop()
		}
	}()
}

// waitForShutdown lets in-flight requests complete once the context is done.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

func setGinMode(level string) {
	if level == logger.DebugLevel {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
