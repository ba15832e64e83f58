// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, integration, cover).
type Test mg.Namespace

// All runs every test. The postgres tests start a container when Docker is
// available and skip otherwise.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs the tests in short mode, which skips container tests.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// Integration runs the postgres store tests. Set
// REPERTOIRE_TEST_DATABASE_URL to use an existing database instead of a
// container.
func (Test) Integration() error {
	return sh.RunV(binGo, "test", "-v", "-run", "TestStore", "./internal/postgres/...")
}

// Cover writes coverage.out and prints the total.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-short", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	out, err := sh.Output(binGo, "tool", "cover", "-func=coverage.out")
	if err != nil {
		return err
	}
	lines := strings.Split(out, "\n")
	fmt.Println(lines[len(lines)-1])
	return nil
}
