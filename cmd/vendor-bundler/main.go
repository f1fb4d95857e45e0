package main

import (
	"github.com/joho/godotenv"
	cmd "github.com/rohmanhakim/vendor-bundler/internal/cli"
)

func main() {
	// VENDOR_BUNDLER_* settings may live in a .env file next to the project
	_ = godotenv.Load()

	cmd.Execute()
}
