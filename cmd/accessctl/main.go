// Command accessctl inspects the access route table and evaluates principals
// against it.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
