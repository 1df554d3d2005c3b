package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ymwjbxxq/crucible/internal/crucible"
	"github.com/ymwjbxxq/crucible/internal/httputil"
	"github.com/ymwjbxxq/crucible/internal/intercept"
)

var (
	flagBindAddr            = pflag.String("bind-addr", ":8080", "The proxy bind address")
	flagDataDir             = pflag.String("data-dir", crucible.DefaultDataDir, "The directory test cases are stored under")
	flagControlHost         = pflag.String("control-host", crucible.DefaultControlHost, "The authority the control surface answers on")
	flagShutdownGracePeriod = pflag.Duration("shutdown-grace-period", 30*time.Second, "The server shutdown grace period")
	flagLogFormat           = pflag.String("log-format", "json", "The log format (json|text)")
	flagLogLevel            = pflag.String("log-level", slog.LevelInfo.String(),
		fmt.Sprintf(
			"The log level (%s>%s>%s>%s) (not case sensitive, from least to most restrictive)",
			slog.LevelDebug.String(),
			slog.LevelInfo.String(),
			slog.LevelWarn.String(),
			slog.LevelError.String(),
		))
)

func main() {
	pflag.Parse()

	//
	// logger setup
	//
	logLeveler := new(slog.LevelVar)
	if err := logLeveler.UnmarshalText([]byte(*flagLogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}
	switch *flagLogFormat {
	case "json":
		slog.SetDefault(
			slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				AddSource: false,
				Level:     logLeveler,
			})),
		)
	default:
	case "text":
		slog.SetDefault(
			slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				AddSource: false,
				Level:     logLeveler,
			})),
		)
	}
	slog.Info("using log level", slog.String("log_level", logLeveler.Level().String()))

	//
	// harness setup
	//
	store := crucible.NewStore(*flagDataDir)
	recorder := crucible.NewRecorder(store).WithControlHost(*flagControlHost)
	replayer := crucible.NewReplayer(store).WithControlHost(*flagControlHost)
	control := crucible.NewServer(recorder, replayer)

	engine := intercept.NewEngine(*flagControlHost, control)
	engine.OnRequest(replayer)
	engine.OnExchange(recorder)

	httpSrv := &http.Server{
		Addr:    *flagBindAddr,
		Handler: httputil.Logged(engine),
	}
	group, groupCtx := errgroup.WithContext(context.Background())
	group.Go(func() error {
		slog.Info("proxy listening",
			slog.String("addr", *flagBindAddr),
			slog.String("control_host", *flagControlHost),
			slog.String("data_dir", *flagDataDir),
		)
		return httpSrv.ListenAndServe()
	})
	group.Go(func() error {
		ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer done()
		select {
		case <-groupCtx.Done():
		case <-ctx.Done():
		}
		shutdownContext, shutdownComplete := context.WithTimeout(context.Background(), *flagShutdownGracePeriod)
		defer shutdownComplete()
		return httpSrv.Shutdown(shutdownContext)
	})
	if err := group.Wait(); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("exiting with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}
