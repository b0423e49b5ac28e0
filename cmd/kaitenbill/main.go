package main

import (
	"context"
	"fmt"
	"os"

	"github.com/andy/kaitenbill/internal/app"
	"github.com/andy/kaitenbill/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	// If the user asked for help, avoid initializing the full app (which may prompt)
	skipInit := false
	opts := app.Options{}
	for _, a := range os.Args[1:] {
		switch a {
		case "-h", "--help", "help", "completion":
			skipInit = true
		case "serve":
			opts.LogToStdout = true
		}
	}

	if !skipInit {
		a, err := app.New(context.Background(), opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize app: %v\n", err)
			return 1
		}
		// Close waits for a running archive sync, so it must run before exit
		defer a.Close()
		cli.SetApp(a)
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
