package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var (
	// Set via LLAMA_SAMPLING_HOST in the environment
	Host string
	// Set via LLAMA_SAMPLING_DEBUG in the environment
	Debug bool
	// Set via LLAMA_SAMPLING_ORIGINS in the environment
	AllowOrigins []string
	// Set via LLAMA_SAMPLING_MODE in the environment
	DefaultMode string
	// Set via LLAMA_SAMPLING_MAX_SESSIONS in the environment
	MaxSessions int
)

const defaultHost = "127.0.0.1:11434"

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"LLAMA_SAMPLING_HOST":         {"LLAMA_SAMPLING_HOST", Host, "IP address and port for the sampling server (default 127.0.0.1:11434)"},
		"LLAMA_SAMPLING_DEBUG":        {"LLAMA_SAMPLING_DEBUG", Debug, "Show additional debug information (e.g. LLAMA_SAMPLING_DEBUG=1)"},
		"LLAMA_SAMPLING_ORIGINS":      {"LLAMA_SAMPLING_ORIGINS", AllowOrigins, "A comma separated list of allowed origins"},
		"LLAMA_SAMPLING_MODE":         {"LLAMA_SAMPLING_MODE", DefaultMode, "Default constraint mode for new sessions: strict, flexible or partial (default \"flexible\")"},
		"LLAMA_SAMPLING_MAX_SESSIONS": {"LLAMA_SAMPLING_MAX_SESSIONS", MaxSessions, "Maximum number of concurrent sessions (default 64)"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

var defaultAllowOrigins = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Host = defaultHost
	Debug = false
	AllowOrigins = nil
	DefaultMode = "flexible"
	MaxSessions = 64

	if host := clean("LLAMA_SAMPLING_HOST"); host != "" {
		Host = host
	}

	if debug := clean("LLAMA_SAMPLING_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	if mode := clean("LLAMA_SAMPLING_MODE"); mode != "" {
		switch strings.ToLower(mode) {
		case "strict", "flexible", "partial":
			DefaultMode = strings.ToLower(mode)
		default:
			slog.Error("invalid setting, ignoring", "LLAMA_SAMPLING_MODE", mode)
		}
	}

	if max := clean("LLAMA_SAMPLING_MAX_SESSIONS"); max != "" {
		m, err := strconv.Atoi(max)
		if err != nil || m <= 0 {
			slog.Error("invalid setting must be greater than zero", "LLAMA_SAMPLING_MAX_SESSIONS", max, "error", err)
		} else {
			MaxSessions = m
		}
	}

	if origins := clean("LLAMA_SAMPLING_ORIGINS"); origins != "" {
		AllowOrigins = strings.Split(origins, ",")
	}
	for _, allowOrigin := range defaultAllowOrigins {
		AllowOrigins = append(AllowOrigins,
			fmt.Sprintf("http://%s", allowOrigin),
			fmt.Sprintf("https://%s", allowOrigin),
			fmt.Sprintf("http://%s:*", allowOrigin),
			fmt.Sprintf("https://%s:*", allowOrigin),
		)
	}
}
