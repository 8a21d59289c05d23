// Package main is the entry point for the labctl CLI.
//
// labctl converges a local kind-based lab cluster and its platform stack
// (CoreDNS, ingress-nginx, smoke endpoint) from unknown state to
// known-ready. Re-running is always safe: a healthy cluster is reused, an
// unhealthy one recreated.
//
// Commands: start, doctor, version, completion.
package main

import (
	"fmt"
	"os"

	"github.com/kubechaos/labctl/cmd/labctl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
