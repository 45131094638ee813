//go:build mage
// +build mage

package main

import (
	"fmt"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const pkg = "github.com/threecommaio/bitly/version"

// Build builds bin/bitly with the version information embedded
func Build() error {
	mg.Deps(Test)

	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		commit = "UNKNOWN"
	}
	tag, err := sh.Output("git", "describe", "--tags", "--abbrev=0")
	if err != nil {
		tag = "v0.0.0"
	}
	ldflags := fmt.Sprintf("-s -w -X %[1]s.Version=%[2]s -X %[1]s.CommitHash=%[3]s -X %[1]s.BuildTimestamp=%[4]s",
		pkg, tag, commit, time.Now().UTC().Format(time.RFC3339))

	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", "bin/bitly", "./cmd/bitly")
}

// Test runs the test suite
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}
