package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/ratiba/apps/shared"
	"github.com/trezcool/ratiba/core"
	logsvc "github.com/trezcool/ratiba/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "RATIBA : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeStore, err := shared.NewDeps(ctx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		deps: deps,
		in:   os.Stdin,
		out:  os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	if cErr := closeStore(); cErr != nil {
		logger.Error("closing session store", cErr)
	}
	if err != nil {
		if err != errHelp {
			_, _ = fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		stop()
		os.Exit(1)
	}
}
