package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${VAR} placeholders using lookup. Unset variables expand to the empty
// string and are returned, sorted and without duplicates, so the caller can warn about them.
func ExpandEnv(data []byte, lookup func(string) (string, bool)) ([]byte, []string) {
	missing := make(map[string]bool)
	out := placeholder.ReplaceAllFunc(data, func(m []byte) []byte {
		name := string(placeholder.FindSubmatch(m)[1])
		v, ok := lookup(name)
		if !ok {
			missing[name] = true
			return nil
		}
		return []byte(v)
	})

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return out, names
}

// LoadDotEnv loads variables from a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("loading %s: %w", path, err)
	}
	return true, nil
}

// ZerologLevel returns the configured log level, or info if it does not parse.
func (l LoggingConfig) ZerologLevel() zerolog.Level {
	level, err := parseLevel(l.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func parseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, err
	}
	if level == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("unknown level %q", s)
	}
	return level, nil
}
