package main

import (
	"fmt"
	"os"

	"github.com/Ning0612/Explorer/internal/logger"
)

// version can be overridden with -ldflags "-X main.version=1.0.0"
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	defer logger.Shutdown()

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}
