package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roadsight/helmetwatch/internal/config"
	"github.com/roadsight/helmetwatch/internal/log"
	"github.com/roadsight/helmetwatch/pkg/detect"
	"github.com/roadsight/helmetwatch/pkg/pipeline"
	"github.com/roadsight/helmetwatch/pkg/source"
	"github.com/roadsight/helmetwatch/pkg/web"
)

func main() {
	// Command line flags (env vars provide the defaults)
	backend := flag.String("backend", config.BackendURL(), "Detection backend base URL")
	port := flag.String("port", config.ListenPort(), "Dashboard listen port")
	device := flag.Int("device", config.CameraDevice(), "Camera device ID")
	periodMs := flag.Int64("period", config.SamplePeriod().Milliseconds(), "Sample period in ms")
	logLevel := flag.String("log-level", config.LogLevel(), "Log level (debug, info, warn, error)")
	flag.Parse()

	log.Init(*logLevel)

	cfg := pipeline.DefaultConfig()
	cfg.SamplePeriod = time.Duration(*periodMs) * time.Millisecond
	cfg.CameraDevice = *device
	cfg.Resolution = source.DefaultHint()
	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, "config:", p)
		}
		os.Exit(1)
	}

	fmt.Println("🪖 helmetwatch")
	fmt.Printf("   Backend:   %s\n", *backend)
	fmt.Printf("   Dashboard: http://localhost:%s\n", *port)
	fmt.Printf("   Camera:    device %d\n", *device)
	fmt.Println()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 Shutting down...")
		cancel()
	}()

	detector := detect.NewClient(*backend)
	collector := detect.NewCollector(*backend)

	pipe := pipeline.New(cfg, detector, pipeline.DeviceFactory{})
	server := web.NewServer(*port, pipe, collector)
	pipe.SetSink(server)

	server.StartAsync()

	// Blocks until the context is cancelled, then releases the
	// source and stops the sampler.
	pipe.Run(ctx)

	if err := server.Shutdown(); err != nil {
		log.Error("shutdown", "err", err)
	}
	fmt.Println("👋 Goodbye!")
}
