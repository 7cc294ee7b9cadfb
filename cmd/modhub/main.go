package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/modhub/internal/app"
	"github.com/dmitrijs2005/modhub/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	a.Run(ctx)

}
