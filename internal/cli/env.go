package cli

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// OverrideEnvVars name variables that point at an explicit .env file and win over --env.
var OverrideEnvVars = []string{"WEBNOVELS_ENV_FILE", "HORSE_ENV_FILE"}

// EnvLoader loads .env files with a predictable override order.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	value := fs.String("env", defaultPath, description)
	return &EnvLoader{
		value:       value,
		defaultPath: defaultPath,
	}
}

// Load resolves and loads environment variables using the configured flag value.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	log.SetOutput(os.Stderr)

	for _, envVar := range OverrideEnvVars {
		custom := strings.TrimSpace(os.Getenv(envVar))
		if custom == "" {
			continue
		}
		if err := godotenv.Overload(custom); err == nil {
			log.Printf("Loaded environment from %s: %s", envVar, custom)
			return custom, nil
		}
		log.Printf("Warning: failed to load %s=%s", envVar, custom)
	}

	requested := strings.TrimSpace(derefString(l.value))
	if requested == "" {
		requested = l.defaultPath
	}

	candidates := []string{requested}
	if base := filepath.Base(requested); base != "" && base != requested {
		candidates = append(candidates, base)
	}
	if requested != l.defaultPath {
		candidates = append(candidates, l.defaultPath)
	}

	for _, candidate := range candidates {
		if err := godotenv.Overload(candidate); err == nil {
			log.Printf("Loaded environment from: %s", candidate)
			return candidate, nil
		}
	}

	return "", fmt.Errorf("failed to load env file from %s", requested)
}

// LoadOrWarn loads the env file and reports a missing file as a warning on w.
// Commands keep running on plain process environment when no file is found.
func (l *EnvLoader) LoadOrWarn(w io.Writer) {
	if l == nil {
		return
	}
	if _, err := l.Load(); err != nil && w != nil {
		fmt.Fprintf(w, "Warning: %v\n", err)
	}
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
