// Command podiumctl is the operator tool for podium.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/okian/podium/internal/cli"
)

func main() {
	// A missing .env is fine; settings may come from the environment.
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
