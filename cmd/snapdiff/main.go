// Command snapdiff compares document snapshots and tracks their changes.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
