package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"doorman/internal/config"
	"doorman/internal/console"
	"doorman/internal/handlers"
	"doorman/internal/logger"
	"doorman/internal/mailbox"
	"doorman/internal/server"
	"doorman/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:           "doorman",
		Short:         "Thermal doorway camera",
		Long:          "doorman watches a thermal sensor and photographs whoever walks up to the door.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded := config.LoadEnvFiles(nil)
			if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(a.v, cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.Get(cfg.LogLevel)
			a.console = console.New(os.Stdin, a.log.Named("console"))
			if len(loaded) > 0 {
				a.log.Debugw("env_files_loaded", "files", loaded)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yml)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newRunCmd(a),
		newSenseCmd(a),
		newCaptureCmd(a),
		newResyncCmd(a),
	)
	return root
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run detection, capture and the operator API in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.waitStartup(ctx); err != nil {
				return ignoreCanceled(err)
			}
			rt, err := a.build(ctx, mailbox.NewMemory(), true, true)
			if err != nil {
				return err
			}
			defer rt.close()

			setGinMode(a.cfg.LogLevel)
			srv := &server.Server{}
			runHTTPServer(srv, a.cfg.Port, handlers.NewHandler(rt.services, a.log.Named("http")), a.log, stop)
			errCh := startLoops(ctx, rt.services, stop)
			consoleDone := a.watchConsole(ctx, console.Commands{Trigger: rt.services.Trigger, Quit: stop})

			<-ctx.Done()
			waitForShutdown(srv, a.log)
			err = <-errCh
			<-consoleDone
			return err
		},
	}
}

func newSenseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sense",
		Short: "Run only the detection loop, publishing to the mailbox file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mbox, err := mailbox.NewFile(a.cfg.MailboxPath)
			if err != nil {
				return err
			}
			rt, err := a.build(ctx, mbox, true, false)
			if err != nil {
				return err
			}
			defer rt.close()

			consoleDone := a.watchConsole(ctx, console.Commands{Trigger: rt.services.Trigger, Quit: stop})
			err = <-startLoops(ctx, rt.services, stop)
			stop()
			<-consoleDone
			return err
		},
	}
}

func newCaptureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Run only the capture loop, consuming the mailbox file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.waitStartup(ctx); err != nil {
				return ignoreCanceled(err)
			}
			mbox, err := mailbox.NewFile(a.cfg.MailboxPath)
			if err != nil {
				return err
			}
			rt, err := a.build(ctx, mbox, false, true)
			if err != nil {
				return err
			}
			defer rt.close()

			consoleDone := a.watchConsole(ctx, console.Commands{Quit: stop})
			err = <-startLoops(ctx, rt.services, stop)
			stop()
			<-consoleDone
			return err
		},
	}
}

func newResyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Upload captures that were archived while offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if a.cfg.BucketName == "" {
				return errors.New("resync: bucket_name is not set")
			}
			rt, err := a.build(ctx, mailbox.NewMemory(), false, false)
			if err != nil {
				return err
			}
			defer rt.close()

			rep, err := rt.services.Resync(ctx)
			if err != nil {
				return fmt.Errorf("resync: %w", err)
			}
			a.log.Infow("resync_done", "attempted", rep.Attempted, "uploaded", rep.Uploaded, "failed", rep.Failed)
			fmt.Fprintf(cmd.OutOrStdout(), "attempted=%d uploaded=%d failed=%d\n", rep.Attempted, rep.Uploaded, rep.Failed)
			return nil
		},
	}
}

// startLoops runs whichever loops the service carries under ctx. The returned
// channel yields the detection error (or nil) once every loop has exited.
func startLoops(ctx context.Context, svc *service.Service, stop context.CancelFunc) <-chan error {
	var (
		wg      sync.WaitGroup
		loopErr error
	)
	if svc.Detector != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Detector.Run(ctx); err != nil {
				loopErr = err
				stop()
			}
		}()
	}
	if svc.Capturer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Capturer.Run(ctx)
		}()
	}

	out := make(chan error, 1)
	go func() {
		wg.Wait()
		out <- loopErr
	}()
	return out
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
