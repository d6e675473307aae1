// Package main provides the crawler command-line tool for running batch
// article collection against a PTT-style bulletin board.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pttgrab/internal/board/pttweb"
	"pttgrab/internal/config"
	"pttgrab/internal/logger"
	"pttgrab/internal/runner"
)

const defaultConfigPath = "configs/crawler.yaml"

func main() {
	configFile := flag.String("config", "", "Path to YAML or JSON configuration file")
	credFile := flag.String("credentials", "", "Path to JSON credential file (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
	reportPath := flag.String("report", "", "Run report JSON path (overrides config)")
	outputPath := flag.String("output", "", "Output path (overrides config when a single task is configured)")
	showUsage := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *showUsage {
		printUsage()
		os.Exit(0)
	}

	cfg := mustLoadConfig(*configFile)

	if *credFile != "" {
		cfg.Session.CredentialFile = *credFile
	}

	if *logLevel != "" {
		cfg.Options.LogLevel = *logLevel
	}

	if *reportPath != "" {
		cfg.Options.ReportPath = *reportPath
	}

	// Only override the output path when processing a single task.
	if *outputPath != "" && len(cfg.Tasks) == 1 {
		cfg.Tasks[0].Output = *outputPath
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Options.LogLevel)

	printHeader(cfg)

	var creds *config.Credentials

	if cfg.Session.CredentialFile != "" {
		var err error

		creds, err = config.LoadCredentials(cfg.Session.CredentialFile)
		if err != nil {
			log.Error(fmt.Sprintf("❌ Failed to load credentials: %v", err))
			os.Exit(1)
		}

		log.Info(fmt.Sprintf("🔐 Using credentials for %s", creds.Account))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()

	log.Info("Phase 1: Session...")

	gateway, err := pttweb.Dial(ctx, cfg, creds, log)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Session failed: %v", err))
		os.Exit(1)
	}

	log.Info(fmt.Sprintf("✅ Session ready against %s", cfg.Session.BaseURL))

	log.Info("Phase 2: Tasks...")

	rep, runErr := runner.New(cfg, gateway, log).Run(ctx)

	if cfg.Options.ReportPath != "" {
		if saveErr := rep.Save(cfg.Options.ReportPath); saveErr != nil {
			log.Warn(fmt.Sprintf("⚠️  Could not save report: %v", saveErr))
		} else {
			log.Info(fmt.Sprintf("📝 Report saved to: %s", cfg.Options.ReportPath))
		}
	}

	fmt.Println("\n------------------------------------------------")
	fmt.Printf("📊 Summary Report\n")
	fmt.Println("------------------------------------------------")
	fmt.Print(rep.Summary())
	fmt.Printf("Tasks: %d succeeded, %d failed\n", rep.Succeeded, rep.Failed)
	fmt.Printf("Total Duration: %v\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Println("------------------------------------------------")

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Warn("⚠️  Run interrupted")
		} else {
			log.Error(fmt.Sprintf("❌ Batch aborted: %v", runErr))
		}

		os.Exit(1)
	}

	if rep.Failed > 0 {
		log.Warn(fmt.Sprintf("⚠️  %d task(s) failed", rep.Failed))
	}

	log.Info("✨ Batch complete!")
}

// mustLoadConfig loads the given config file, falling back to the default
// path in the working directory when no flag was passed.
func mustLoadConfig(path string) *config.Config {
	if path != "" {
		fmt.Printf("⚙️  Loading configuration from: %s\n", path)

		cfg, err := config.LoadConfig(path)
		if err != nil {
			fmt.Printf("❌ Failed to load config: %v\n", err)
			os.Exit(1)
		}

		return cfg
	}

	if _, err := os.Stat(defaultConfigPath); err == nil {
		fmt.Printf("⚙️  Loading default configuration: %s\n", defaultConfigPath)

		cfg, err := config.LoadConfig(defaultConfigPath)
		if err != nil {
			fmt.Printf("❌ Failed to load default config: %v\n", err)
			os.Exit(1)
		}

		return cfg
	}

	fmt.Println("❌ Please provide -config file or place configs/crawler.yaml in the working directory")
	os.Exit(1)

	return nil
}

func printHeader(cfg *config.Config) {
	fmt.Println("🕷️  pttgrab Batch Crawler")
	fmt.Printf("Board host: %s\n", cfg.Session.BaseURL)
	fmt.Printf("Tasks: %d\n", len(cfg.Tasks))
	fmt.Printf("Politeness: %.1fs between requests, max %d retries\n",
		cfg.Options.DelayBetweenRequests, cfg.Options.MaxRetries)
	fmt.Println()
}

func printUsage() {
	fmt.Println("Usage: ./bin/crawler [OPTIONS]")
	fmt.Println()
	fmt.Println("Modes:")
	fmt.Println("  1. Config-based:   ./bin/crawler -config configs/crawler.yaml")
	fmt.Println("  2. Default config: ./bin/crawler (reads configs/crawler.yaml if present)")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ./bin/crawler -config configs/crawler.yaml")
	fmt.Println("  ./bin/crawler -config configs/crawler.yaml -log-level debug")
	fmt.Println("  ./bin/crawler -config batch.json -report out/report.json")
	fmt.Println("  ./bin/crawler -config single.yaml -output data/articles.json")
}
