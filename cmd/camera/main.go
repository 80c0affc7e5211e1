package main

import (
	"context"
	"log"

	"github.com/photolock/photolock/internal/camera"
	"github.com/photolock/photolock/internal/camera/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := camera.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
