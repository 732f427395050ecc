// Package main provides the autoexpr command-line driver.
//
// It evaluates a configured expression over many sampled paths and reports
// the mean value and derivative with their standard errors.
package main

import (
	"fmt"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
