//go:build mage

// Package main provides build targets for the repertoire project using Mage.
//
// Usage:
//
//	mage build             Compile the repertoire binary to bin/
//	mage test:all          Run every test, including the postgres container tests
//	mage test:unit         Run tests with -short (no containers)
//	mage test:integration  Run the postgres store tests against a container
//	mage test:cover        Write coverage.out and print the total
//	mage lint              Run go vet and golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install repertoire to GOPATH/bin
//	mage stats             Print Go LOC and documentation word counts
package main
