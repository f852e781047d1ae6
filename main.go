package main

import (
	"context"
	"log"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/bootstrap"
)

// Runs the API and the worker in one process for local development.
func main() {
	services := bootstrap.Setup()

	manager, err := bootstrap.NewWorker(context.Background(), services)
	if err == nil {
		err = manager.Start()
	}
	if err != nil {
		log.Printf("Worker disabled: %v", err)
		manager = nil
	}

	app := bootstrap.NewAPI(services)
	err = app.Listen(bootstrap.ListenAddr())
	if manager != nil {
		manager.Stop()
	}
	log.Fatal(err)
}
