// Command booksctl runs operator maintenance jobs against the library:
// cover backfill, record migration from the bucket and author lookup.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
