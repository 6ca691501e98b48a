/*
This is an example of application that will use the
engine package to draw a triangle
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkguard/engine"
	"github.com/spaghettifunk/vkguard/engine/core"
	_ "github.com/spaghettifunk/vkguard/engine/platform/desktop"
	_ "github.com/spaghettifunk/vkguard/engine/renderer/vulkan/native"
	"github.com/spaghettifunk/vkguard/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg := core.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = core.LoadConfig(*configPath); err != nil {
			panic(err)
		}
	}
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		panic(err)
	}

	tb := testbed.NewTestGame()

	engine, err := engine.New(cfg, tb.Game)
	if err != nil {
		panic(err)
	}

	if err := engine.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// stop the frame loop; shutdown happens on this goroutine once Run returns
	go func() {
		<-sigCh
		engine.Stop()
	}()

	// run engine
	runErr := engine.Run()
	if err := engine.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		panic(runErr)
	}
}
