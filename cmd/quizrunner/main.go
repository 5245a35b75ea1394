package main

import (
	"log"
	"os"

	"quizrunner/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("quizrunner: %v", err)
		os.Exit(1)
	}
}
