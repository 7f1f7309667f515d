// One-shot CLI: run helmet detection on a single image file and
// write the annotated result next to it. Useful for smoke-testing a
// backend without starting the dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/roadsight/helmetwatch/internal/config"
	"github.com/roadsight/helmetwatch/internal/log"
	"github.com/roadsight/helmetwatch/pkg/detect"
	"github.com/roadsight/helmetwatch/pkg/overlay"
	"github.com/roadsight/helmetwatch/pkg/source"
)

func main() {
	imagePath := flag.String("image", "", "Path to the input image (required)")
	backend := flag.String("backend", config.BackendURL(), "Detection backend base URL")
	outPath := flag.String("out", "annotated.jpg", "Path for the annotated output image")
	timeout := flag.Duration("timeout", 30*time.Second, "Backend request timeout")
	flag.Parse()

	log.Init("warn")

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: detect-image -image photo.jpg [-backend url] [-out annotated.jpg]")
		os.Exit(2)
	}

	img, err := source.OpenImageFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open image: %v\n", err)
		os.Exit(1)
	}
	defer img.Release()

	frame, err := img.CurrentFrame()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read frame: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	detector := detect.NewClient(*backend)
	dets, err := detector.Detect(ctx, frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "detect: %v\n", err)
		os.Exit(1)
	}

	annotated, err := overlay.RenderStatic(frame, dets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, annotated, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *outPath, err)
		os.Exit(1)
	}

	stats := detect.Compute(dets)
	fmt.Printf("%d rider(s): %d with helmet, %d without (%d%% compliant)\n",
		stats.Total, stats.WithHelmet, stats.WithoutHelmet, stats.HelmetPercent)
	for _, d := range dets {
		fmt.Printf("  %-14s %v\n", overlay.Label(d), d.Box)
	}
	fmt.Println("annotated image written to", *outPath)
}
