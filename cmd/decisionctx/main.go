package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/goliatone/go-decisions/internal/cli"
	"github.com/goliatone/go-decisions/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCommandError
	}

	app := cli.NewApp(cfg, afero.NewOsFs(), cfg.NewLogger(os.Stderr))
	defer app.Close()

	if err := cli.NewRootCommand(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
