package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farewatch/internal/app"
	logx "farewatch/pkg/logx"
)

func main() {
	var (
		cfgPath string
		envPath string
		once    bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml or json")
	flag.StringVar(&envPath, "env", ".env", "optional .env file with secrets")
	flag.BoolVar(&once, "once", false, "run the check once and exit")
	flag.Parse()

	// boot logs before the configured logger exists and after it is closed.
	boot := logx.NewConsole("info")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(app.Options{ConfigPath: cfgPath, EnvPath: envPath})
	if err != nil {
		boot.Error("startup failed", logx.Err(err))
		os.Exit(1)
	}

	if once {
		rep, err := a.RunOnce(ctx)
		a.Logger().Info("check finished",
			logx.String("run_id", rep.RunID),
			logx.Int("offers", rep.Offers()),
			logx.Int("sent", rep.Sent),
			logx.Int("failures", len(rep.AllErrors())),
		)
		_ = a.Stop(context.Background())
		if err != nil {
			boot.Error("check failed", logx.Err(err))
			os.Exit(1)
		}
		return
	}

	if err := a.Start(ctx); err != nil {
		boot.Error("start failed", logx.Err(err))
		os.Exit(1)
	}

	<-a.Done()
	failed := a.Err()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Minute)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		boot.Error("stop failed", logx.Err(err))
	}
	if failed != nil {
		boot.Error("background loop failed", logx.Err(failed))
		os.Exit(1)
	}
}
