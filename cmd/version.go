// Package cmd holds the build details shared by every binary. They are set at link time:
//
//	go build -ldflags "-X github.com/circleci/ex-demos/cmd.Version=$(git describe)"
package cmd

var (
	Version = "dev"
	Date    = "unknown"
)
