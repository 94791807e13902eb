package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattjoyce/hookguard/internal/config"
	"github.com/mattjoyce/hookguard/internal/signature"
)

const defaultSecretEnv = "HOOKGUARD_SECRET"

// secretFlags selects the signing secret: an environment variable, or a
// configured endpoint's secret when --endpoint is given.
type secretFlags struct {
	secretEnv  string
	configPath string
	endpoint   string
}

func (s *secretFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.secretEnv, "secret-env", defaultSecretEnv, "Environment variable holding the secret")
	fs.StringVar(&s.configPath, "config", "", "Config file used with --endpoint")
	fs.StringVar(&s.endpoint, "endpoint", "", "Use the secret of the configured endpoint with this path")
}

func (s *secretFlags) resolve() ([]byte, error) {
	if s.endpoint != "" {
		cfg, err := config.Load(resolveConfigPath(s.configPath))
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		for _, ep := range cfg.Webhooks.Endpoints {
			if ep.Path == s.endpoint || ep.Name == s.endpoint {
				secret, err := cfg.ResolveSecret(ep)
				if err != nil {
					return nil, err
				}
				return []byte(secret), nil
			}
		}
		return nil, fmt.Errorf("endpoint %q not configured", s.endpoint)
	}

	secret, ok := os.LookupEnv(s.secretEnv)
	if !ok || secret == "" {
		return nil, fmt.Errorf("environment variable %s is not set", s.secretEnv)
	}
	return []byte(secret), nil
}

// readBody reads path, "-" for stdin. An empty path means an empty body.
func readBody(path string) ([]byte, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(path)
	}
}

func runSign(args []string) int {
	var secrets secretFlags
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	secrets.register(fs)
	rawURL := fs.String("url", "", "Absolute URL the sender posts to")
	bodyFile := fs.String("body-file", "", "Request body file (- for stdin)")
	jsonBody := fs.Bool("json", false, "Bind the body through bodySHA256 instead of form parameters")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if *rawURL == "" {
		fmt.Fprintln(os.Stderr, "Error: --url is required")
		return 1
	}

	secret, err := secrets.resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	body, err := readBody(*bodyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		return 1
	}

	target := *rawURL
	if *jsonBody {
		target, err = signature.WithBodyHash(target, body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	sig, err := signature.Sign(secret, target, body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonBody {
		fmt.Println(target)
	}
	fmt.Println(sig)
	return 0
}

func runVerify(args []string) int {
	var secrets secretFlags
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	secrets.register(fs)
	rawURL := fs.String("url", "", "Absolute URL the request was sent to")
	sig := fs.String("signature", "", "Value of the signature header")
	bodyFile := fs.String("body-file", "", "Request body file (- for stdin)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if *rawURL == "" {
		fmt.Fprintln(os.Stderr, "Error: --url is required")
		return 1
	}

	secret, err := secrets.resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	body, err := readBody(*bodyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		return 1
	}

	res := signature.Validate(secret, *sig, *rawURL, body)
	if !res.Valid {
		fmt.Printf("rejected: %s\n", res.Reason)
		return 1
	}
	fmt.Printf("accepted: payload=%s variant=%s\n", res.Payload, res.Variant)
	return 0
}
