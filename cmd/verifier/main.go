package main

import (
	"context"
	"log"

	"github.com/photolock/photolock/internal/verifier"
	"github.com/photolock/photolock/internal/verifier/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := verifier.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
