package main

import (
	"os"

	"github.com/atlastales/storygraph/internal/cli"
	"github.com/atlastales/storygraph/internal/util"
	"github.com/atlastales/storygraph/pkg/logger"
	"github.com/atlastales/storygraph/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
