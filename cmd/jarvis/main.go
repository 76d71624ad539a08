// Command jarvis is a terminal front end for the portfolio assistant: a streaming chat against the
// assistant socket plus read and contact commands against the content API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
