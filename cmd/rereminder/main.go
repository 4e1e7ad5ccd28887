package main

import (
	"os"

	"github.com/scaramou4/rereminder-bot-sub000/internal/version"
)

// Set with -ldflags "-X main.Version=...". Empty values keep the defaults.
var (
	Version   string
	BuildTime string
	GitCommit string
	GoVersion string
)

func init() {
	version.SetInfo(Version, BuildTime, GitCommit, GoVersion)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
