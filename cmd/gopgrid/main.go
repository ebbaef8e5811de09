package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/pvidal/gopgrid/cmd/gopgrid/cmd"
)

func main() {
	// Optional .env for data roots and credentials; absence is fine.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
