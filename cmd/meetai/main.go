package main

import (
	"os"

	"github.com/meetai/meetai/internal/cli"
	"github.com/tillberg/autorestart"
)

func main() {
	if os.Getenv("MEETAI_AUTORESTART") == "1" {
		go autorestart.RestartOnChange()
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
