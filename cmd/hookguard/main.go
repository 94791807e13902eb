package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// defaultConfigPath is used when neither --config nor HOOKGUARD_CONFIG is set.
const defaultConfigPath = "hookguard.yaml"

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	// --- NOUNS ---
	case "config":
		return runConfigNoun(args)
	case "delivery":
		return runDeliveryNoun(args)

	// --- VERBS ---
	case "serve":
		if hasHelpFlag(args) {
			printServeHelp()
			return 0
		}
		return runServe(args)
	case "sign":
		if hasHelpFlag(args) {
			printSignHelp()
			return 0
		}
		return runSign(args)
	case "verify":
		if hasHelpFlag(args) {
			printVerifyHelp()
			return 0
		}
		return runVerify(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: hookguard version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("hookguard %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalized, ok := normalizeBuildTimeUTC(built); ok {
		info.BuildTime = normalized
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}
	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// resolveConfigPath picks --config, then $HOOKGUARD_CONFIG, then ./hookguard.yaml.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(os.Getenv("HOOKGUARD_CONFIG")); env != "" {
		return env
	}
	return defaultConfigPath
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Print(`hookguard - signed webhook gate

Usage:
  hookguard <command> [flags]
  hookguard <noun> <action> [flags]

Commands:
  serve             Run the webhook gate in the foreground
  sign              Compute the signature a sender would attach
  verify            Check a signature offline (exit 0 accepted, 1 rejected)
  version           Show version information

Config Commands:
  config check        Load and validate configuration and integrity
  config hash-update  Rewrite .checksums for every config file in use

Delivery Commands:
  delivery list       List recorded deliveries
  delivery show <id>  Show one delivery
  delivery prune      Delete deliveries older than the retention window
  delivery stats      Count deliveries by status and reason

The config file defaults to $HOOKGUARD_CONFIG, then ./hookguard.yaml.
Use 'hookguard <command> --help' for flags.
`)
}

func printServeHelp() {
	fmt.Println("Usage: hookguard serve [--config PATH]")
	fmt.Println("Runs the webhook gate until SIGINT or SIGTERM.")
}

func printSignHelp() {
	fmt.Println("Usage: hookguard sign --url URL [--secret-env VAR] [--body-file FILE|-] [--json]")
	fmt.Println("Prints the X-Twilio-Signature value for the request. With --json the")
	fmt.Println("bodySHA256 parameter is added to the URL first and the signed URL is printed too.")
}

func printVerifyHelp() {
	fmt.Println("Usage: hookguard verify --url URL --signature SIG [--secret-env VAR] [--body-file FILE|-]")
	fmt.Println("Prints accepted or rejected with the reason. Exit status 0 when accepted.")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: hookguard config <action>")
	fmt.Fprintln(w, "Actions: check, hash-update")
}

func printDeliveryNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: hookguard delivery <action>")
	fmt.Fprintln(w, "Actions: list, show, prune, stats")
}
