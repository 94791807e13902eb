package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattjoyce/hookguard/internal/config"
)

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "hash-update", "lock": // lock kept as a short alias
		return runConfigHashUpdate(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("config check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config invalid: %v\n", err)
		return 1
	}

	fmt.Printf("Config OK: %s\n", cfg.Path)
	for _, f := range cfg.SourceFiles[1:] {
		fmt.Printf("  include: %s\n", f)
	}
	fmt.Printf("  listen: %s\n", cfg.Webhooks.Listen)
	fmt.Printf("  state: %s\n", cfg.State.Path)
	fmt.Printf("  retention: %s\n", cfg.Service.Retention)
	if cfg.Metrics.IsEnabled() {
		fmt.Printf("  metrics: %s\n", cfg.Metrics.Path)
	} else {
		fmt.Println("  metrics: disabled")
	}
	fmt.Printf("  endpoints: %d\n", len(cfg.Webhooks.Endpoints))
	for _, ep := range cfg.Webhooks.Endpoints {
		source := "secret"
		if ep.SecretRef != "" {
			source = "secret_ref:" + ep.SecretRef
		}
		fmt.Printf("    %s (%s) header=%s %s\n", ep.Path, ep.Name, ep.SignatureHeader, source)
	}
	return 0
}

func runConfigHashUpdate(args []string) int {
	var configPath string
	var verbose, verboseShort, dryRun bool

	fs := flag.NewFlagSet("config hash-update", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&verboseShort, "v", false, "Verbose output")
	fs.BoolVar(&dryRun, "dry-run", false, "Compute hashes without writing .checksums")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	isVerbose := verbose || verboseShort

	cfg, err := config.LoadUnverified(resolveConfigPath(configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	reports, err := config.UpdateChecksums(cfg, dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to update checksums: %v\n", err)
		return 1
	}

	for _, report := range reports {
		if isVerbose || dryRun {
			for _, f := range report.Files {
				if f.Exists {
					fmt.Printf("  HASH %s %s\n", f.Hash, f.Path)
				} else {
					fmt.Printf("  SKIP (missing) %s\n", f.Path)
				}
			}
		}
		if dryRun {
			fmt.Printf("Dry run: would write %s\n", report.ChecksumPath)
			continue
		}
		fmt.Printf("Updated %s\n", report.ChecksumPath)
	}
	return 0
}
