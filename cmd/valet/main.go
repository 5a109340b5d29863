package main

import (
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// A .env in the working directory is optional.
	if err := godotenv.Load(); err == nil {
		log.Printf("[valet] loaded environment from .env")
	}
	Execute()
}
