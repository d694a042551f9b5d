package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperlicked/betagent/pkg/orchestrator"
)

func main() {
	agent, coord, disc, lifecycleMgr, _, err := orchestrator.Boot("")
	if err != nil {
		log.Fatalf("boot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		agent.Shutdown(context.Background())
	}()

	agent.Run(ctx, coord, disc, lifecycleMgr)
}
