package main

import (
	"log"

	"github.com/MrSnakeDoc/arrgate/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ arrgate failed to start: %v", err)
	}
}
