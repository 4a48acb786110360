package config

import (
	"os"
	"strings"
)

// Verbose reports CT_VERBOSE from spec.md §6.3: when set, log lines are
// colored by level. Logs go to stderr either way; they are not written
// to stdout, which carries only the IPC protocol.
func Verbose() bool {
	return os.Getenv("CT_VERBOSE") == "1"
}

// LightMode reports CT_LIGHT_MODE: skip loading the heavy LLM at startup.
func LightMode() bool {
	return os.Getenv("CT_LIGHT_MODE") == "1"
}

// LogWhitelist parses CT_LOG_WHITELIST, a comma-separated list of extra
// log labels to forward to the IPC transport on top of the fixed prefix
// set in spec.md §6.1.
func LogWhitelist() []string {
	raw := os.Getenv("CT_LOG_WHITELIST")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
