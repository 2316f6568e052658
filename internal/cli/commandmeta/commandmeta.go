package commandmeta

import "strings"

type OutputPolicy uint8

const (
	OutputPolicyStructured OutputPolicy = iota
	OutputPolicyTextOnly
)

// RequiresContextBootstrapPath reports whether the command talks to a
// Foreman server and therefore needs a resolved context.
func RequiresContextBootstrapPath(commandPath string) bool {
	normalized := strings.TrimSpace(commandPath)
	switch {
	case normalized == "cement ping":
		return true
	case normalized == "cement template apply":
		return true
	case normalized == "cement entity kinds":
		return false
	case strings.HasPrefix(normalized, "cement entity "):
		return true
	case strings.HasPrefix(normalized, "cement organization "):
		return true
	}
	return false
}

// EmitsExecutionStatusPath lists the mutating commands that end with a
// status line on stderr.
func EmitsExecutionStatusPath(path string) bool {
	switch strings.TrimSpace(path) {
	case "cement entity ensure",
		"cement template apply":
		return true
	default:
		return false
	}
}

func OutputPolicyForPath(path string) OutputPolicy {
	normalized := strings.TrimSpace(path)
	if strings.HasPrefix(normalized, "cement completion") {
		return OutputPolicyTextOnly
	}
	return OutputPolicyStructured
}
