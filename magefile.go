//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary   = "bin/crewboard"
	wireDir  = "./internal/app"
	docsDir  = "cmd/server/docs"
	swagDirs = "cmd/server,internal/module/collaboration,internal/module/project,internal/module/notification,internal/shared/response"
)

// Default target when running mage without arguments.
var Default = Build

// Build compiles the server into bin/crewboard.
func Build() error {
	return sh.RunV("go", "build", "-o", binary, "./cmd/server")
}

// Generate regenerates the wire injector and the swagger docs.
func Generate() {
	mg.SerialDeps(Wire, Swag)
}

// Wire regenerates internal/app/wire_gen.go.
func Wire() error {
	return sh.RunV("wire", wireDir)
}

// Swag regenerates the swagger docs served at /swagger.
func Swag() error {
	return sh.RunV("swag", "init",
		"-g", "docs.go",
		"-d", swagDirs,
		"-o", docsDir,
		"--outputTypes", "go",
	)
}

// Test runs the test suite with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// CI checks that generated code is current, then lints and tests.
func CI() error {
	mg.SerialDeps(Generate)
	if err := sh.RunV("git", "diff", "--exit-code", "--", wireDir, docsDir); err != nil {
		return fmt.Errorf("generated code is stale, run mage generate: %w", err)
	}
	mg.SerialDeps(Lint, Test)
	return nil
}

// Dev runs the server on the memory store with the reminder scheduler off,
// so no Postgres, Redis or push credentials are needed.
func Dev() error {
	mg.Deps(Build)
	env := map[string]string{
		"CREWBOARD_DATABASE_DRIVER":   "memory",
		"CREWBOARD_SCHEDULER_ENABLED": "false",
		"CREWBOARD_LOG_LEVEL":         "debug",
		"CREWBOARD_LOG_FORMAT":        "console",
	}
	devSecrets := map[string]string{
		"CREWBOARD_WEBHOOK_SECRET": "whsec_ZGV2LXdlYmhvb2stc2VjcmV0",
		"CREWBOARD_JWT_SECRET":     "dev-session-secret",
	}
	for key, value := range devSecrets {
		if os.Getenv(key) == "" {
			env[key] = value
		}
	}
	_, err := sh.Exec(env, os.Stdout, os.Stderr, binary)
	return err
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll("bin")
}

// Install installs the code generators and the linter.
func Install() error {
	for _, tool := range []string{
		"github.com/google/wire/cmd/wire@latest",
		"github.com/swaggo/swag/cmd/swag@latest",
		"github.com/golangci/golangci-lint/cmd/golangci-lint@latest",
	} {
		if err := sh.RunV("go", "install", tool); err != nil {
			return fmt.Errorf("install %s: %w", tool, err)
		}
	}
	return nil
}
