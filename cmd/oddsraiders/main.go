package main

import (
	"log"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/bootstrap"
)

func main() {
	services := bootstrap.Setup()
	app := bootstrap.NewAPI(services)
	err := app.Listen(bootstrap.ListenAddr())
	log.Fatal(err)
}
