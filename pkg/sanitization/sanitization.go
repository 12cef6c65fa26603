// Package sanitization scrubs log messages and field values before they reach
// a log sink.
package sanitization

import (
	"fmt"
	"strings"
)

const redactedValue = "[REDACTED]"

const hexDigits = "0123456789abcdef"

// SanitizationType defines how to sanitize a field.
type SanitizationType int

const (
	FullyRedact SanitizationType = iota
	PartialMask
)

// SensitiveFields defines fields that require explicit sanitization behavior.
//
// Keys are lowercased field names. Node identifiers are hardware addresses
// on hosts that use the MAC, so only their last four hex digits are kept.
var SensitiveFields = map[string]SanitizationType{
	"node":          PartialMask,
	"node_id":       PartialMask,
	"mac":           PartialMask,
	"hardware_addr": PartialMask,

	"seed":         FullyRedact,
	"entropy":      FullyRedact,
	"random_state": FullyRedact,
}

// SanitizeLogString removes control characters that could enable log forging.
func SanitizeLogString(value string) string {
	if value == "" {
		return value
	}
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

// SanitizeFieldValue sanitizes a field value based on its key name.
func SanitizeFieldValue(key string, value any) any {
	keyLower := strings.ToLower(strings.TrimSpace(key))
	if keyLower == "" {
		return sanitizeValue(value)
	}

	if typ, ok := SensitiveFields[keyLower]; ok {
		switch typ {
		case PartialMask:
			return maskNodeValue(value)
		default:
			return redactedValue
		}
	}

	for _, substr := range []string{"secret", "seed", "password", "private_key", "token"} {
		if strings.Contains(keyLower, substr) {
			return redactedValue
		}
	}

	return sanitizeValue(value)
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return SanitizeLogString(typed)
	case []byte:
		return SanitizeLogString(string(typed))
	case bool, int, int64, uint16, uint64:
		return typed
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = SanitizeFieldValue(k, v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = sanitizeValue(typed[i])
		}
		return out
	default:
		return SanitizeLogString(fmt.Sprintf("%v", typed))
	}
}

func maskNodeValue(value any) string {
	switch v := value.(type) {
	case uint64:
		return maskHex(fmt.Sprintf("%012x", v))
	case string:
		return maskHex(v)
	case []byte:
		return maskHex(string(v))
	default:
		return redactedValue
	}
}

// maskHex keeps the last four hex digits of a node identifier in any of its
// usual spellings (colon or dash separated, or a bare literal).
func maskHex(value string) string {
	value = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "0x")

	var b strings.Builder
	for _, r := range value {
		if strings.ContainsRune(hexDigits, r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 4 {
		return redactedValue
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
