package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"

	"github.com/forgeyard/forgeyard/server"
)

func main() {
	parser := argparse.NewParser("forgeyard", "Code hosting and deployment backend")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Config file path", Default: "forgeyard.json"})
	wipeDB := parser.Flag("", "wipedb", &argparse.Options{Help: "Erase the entire database before starting (dev only)", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := server.LoadConfig(*configFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if cfg.Workers != 0 {
		runtime.GOMAXPROCS(cfg.Workers)
	}

	flags := server.ServerFlags(0)
	if *wipeDB {
		flags |= server.ServerFlagWipeDB
	}
	srv, err := server.NewServer(logger, cfg, flags)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := srv.ListenHTTP(); err != nil {
		logger.Infof("ListenHTTP returned: %v", err)
	}
}
