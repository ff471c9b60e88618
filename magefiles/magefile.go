// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

// Package main provides build targets for tokenshelf using Mage.
//
// Usage:
//
//	mage build          Compile the tokenshelf binary to bin/
//	mage install        Install tokenshelf to GOPATH/bin
//	mage clean          Remove build artifacts
//	mage test:all       Run all tests
//	mage test:race      Run all tests with the race detector
//	mage test:cover     Write a coverage profile to bin/coverage.out
//	mage lint           Run go vet and golangci-lint
package main

const (
	binGo      = "go"
	binaryName = "tokenshelf"
	binaryDir  = "bin"
	cmdDir     = "./cmd/tokenshelf"
	modulePath = "github.com/mesh-intelligence/tokenshelf"
)
