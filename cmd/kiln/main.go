// Package main provides the Kiln CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kiln-ml/kiln/dataset"
	"github.com/kiln-ml/kiln/eval"
	"github.com/kiln-ml/kiln/internal/config"
	"github.com/kiln-ml/kiln/kernel"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Kiln %s\n", version)
			return
		case "bench":
			runBench(os.Args[2:])
			return
		}
	}

	fmt.Println("Kiln - chunk-parallel kernel evaluation")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  bench      Time chunked evaluation against a sequential run")
}

func runBench(args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML run configuration (optional)")
	if err := fs.Parse(args); err != nil {
		log.Fatal(err)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	prog, err := cfg.BuildKernel()
	if err != nil {
		log.Fatal(err)
	}

	var data *dataset.Matrix
	switch cfg.Dataset.Dist {
	case "normal":
		data, err = dataset.Normal(cfg.Dataset.Rows, cfg.Dataset.Width, cfg.Dataset.Seed)
	default:
		data, err = dataset.Uniform(cfg.Dataset.Rows, cfg.Dataset.Width, cfg.Dataset.Seed)
	}
	if err != nil {
		log.Fatal(err)
	}

	runID := uuid.NewString()
	cache := kernel.NewCache()
	ctx := context.Background()

	fmt.Printf("run %s: %d rows x %d, kernel %s\n", runID, data.Rows(), data.Width(), cfg.Kernel.Type)

	seqStart := time.Now()
	seq, err := eval.Evaluate(ctx, data, prog, eval.Options{
		Chunks:  1,
		Workers: 1,
		Cache:   cache,
	})
	if err != nil {
		log.Fatal(err)
	}
	seqElapsed := time.Since(seqStart)

	parStart := time.Now()
	par, err := eval.Evaluate(ctx, data, prog, eval.Options{
		Chunks:         cfg.Chunks,
		Workers:        cfg.Workers,
		SmallThreshold: cfg.SmallThreshold,
		Cache:          cache,
	})
	if err != nil {
		log.Fatal(err)
	}
	parElapsed := time.Since(parStart)

	var maxDiff float64
	for i := range seq.Data() {
		if d := math.Abs(seq.Data()[i] - par.Data()[i]); d > maxDiff {
			maxDiff = d
		}
	}

	fmt.Printf("sequential: %v\n", seqElapsed)
	fmt.Printf("chunked:    %v (%.2fx)\n", parElapsed, seqElapsed.Seconds()/parElapsed.Seconds())
	fmt.Printf("compiles:   %d, max |diff|: %g\n", cache.Compiles(), maxDiff)
}
