// Package main is the entry point for the insaf portal client.
package main

import (
	"os"

	"github.com/huquq-center/insaf/internal/cli"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(cli.Execute(version, commit))
}
