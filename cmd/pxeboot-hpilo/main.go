// Package main is the entry point for pxeboot-hpilo.
package main

import (
	"os"

	"github.com/jobcespedes/ansible.hpilo/internal/cli"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	err := cli.Execute(cli.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})
	if err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
