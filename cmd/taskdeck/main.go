package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine, flags and config cover everything.
	_ = godotenv.Load()
	if err := Execute(); err != nil {
		fatal(err)
		os.Exit(1)
	}
}
