package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services := bootstrap.Setup()
	manager, err := bootstrap.NewWorker(ctx, services)
	if err != nil {
		log.Fatalf("worker setup: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "once" {
		sum := manager.RunOnce(ctx)
		ins, upd, failed := sum.Totals()
		log.Printf("cycle %s %s inserted=%d updated=%d failed=%d", sum.RunID, sum.Status(), ins, upd, failed)
		return
	}

	if err := manager.Start(); err != nil {
		log.Fatalf("worker start: %v", err)
	}
	<-ctx.Done()
	manager.Stop()
}
