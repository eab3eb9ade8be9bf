package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// sensitiveFragments mark attribute keys whose values never reach a log sink,
// whatever the call site passes.
var sensitiveFragments = []string{"secret", "token", "passphrase", "password", "authorization", "dsn"}

// IsSensitive reports whether key names a credential-bearing attribute.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return false
	}
	for _, fragment := range sensitiveFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

// MaskValue returns the placeholder for non-empty values; empty values pass
// through so operators can tell a missing setting from a hidden one.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField returns an attribute whose value is always masked.
func MaskField(key, value string) slog.Attr {
	return slog.String(key, MaskValue(value))
}

// redactAttr masks string attributes with sensitive keys. It runs inside the
// handler's ReplaceAttr hook.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() != slog.KindString || !IsSensitive(attr.Key) {
		return attr
	}
	return slog.String(attr.Key, MaskValue(attr.Value.String()))
}
