package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kobazaaa/Ashen/engine"
	"github.com/Kobazaaa/Ashen/engine/core"
)

func main() {
	configPath := flag.String("config", "ashen.toml", "path to the TOML configuration")
	flag.Parse()

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}

	e, err := engine.New(cfg)
	if err != nil {
		core.LogFatal("failed to create engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal("failed to initialize engine: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// the frame loop owns every GPU resource, so a signal only asks it to stop
	go func() {
		<-sigCh
		e.Stop()
	}()

	if err := e.Run(); err != nil {
		core.LogFatal("engine stopped: %s", err)
	}
}
