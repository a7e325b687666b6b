package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/premai-io/mii-serve/cmd"
)

func main() {
	// Load .env if present so HF_TOKEN and MII_SERVE_* reach the backend.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
