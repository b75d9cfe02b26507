// Command opsctl administers a fileshare deployment: it applies database
// migrations and provisions ops accounts, which cannot sign up themselves.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
