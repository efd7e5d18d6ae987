package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/mosaic-geo/internal/config"
	"github.com/ironsheep/mosaic-geo/internal/pipeline"
	"github.com/ironsheep/mosaic-geo/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("mosaic-geo - merge classified tiles, georeference the mosaic and measure objects")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mosaic-geo                      Serve MCP tools over stdin/stdout")
	fmt.Println("  mosaic-geo run <config.yaml>    Merge, georeference and measure")
	fmt.Println("  mosaic-geo split <config.yaml>  Cut split.source into tiles")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=debug    Enable debug logging\n", pipeline.LogLevelEnv)
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("mosaic-geo %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol and results)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Version = Version

	if len(os.Args) > 1 {
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		var err error
		switch os.Args[1] {
		case "run":
			err = runPipeline(ctx, os.Args[2])
		case "split":
			err = runSplit(os.Args[2])
		default:
			usage()
			os.Exit(2)
		}
		if err != nil {
			stop()
			log.Fatalf("%s failed: %v", os.Args[1], err)
		}
		return
	}

	if os.Getenv(pipeline.LogLevelEnv) == "debug" {
		log.Printf("Mosaic Geo MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	srv := server.New()
	if err := srv.Run(ctx); err != nil {
		stop()
		log.Fatalf("Server error: %v", err)
	}
}

func runPipeline(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(ctx, cfg)
	var gerr *pipeline.GeodeticError
	if err != nil && !errors.As(err, &gerr) {
		return err
	}
	// The mosaic was written even when georeferencing failed.
	if perr := printJSON(res); perr != nil {
		return perr
	}
	return err
}

func runSplit(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	res, err := pipeline.Split(cfg, nil)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
