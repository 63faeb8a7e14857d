// Package main implements the entry point of the study engine server, which
// runs vocabulary study sessions on behalf of callers of the deck service.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
