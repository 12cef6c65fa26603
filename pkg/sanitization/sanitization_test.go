package sanitization

import "testing"

func TestSanitizeLogString_StripsCRLF(t *testing.T) {
	got := SanitizeLogString("a\r\nb\nc\rd")
	if got != "abcd" {
		t.Fatalf("expected abcd, got %q", got)
	}
	if SanitizeLogString("") != "" {
		t.Fatal("expected empty string to pass through")
	}
}

func TestSanitizeFieldValue_MasksNodeIdentifiers(t *testing.T) {
	cases := []struct {
		key   string
		value any
		want  any
	}{
		{key: "node", value: uint64(0x9f6bdeced846), want: "********d846"},
		{key: "NODE_ID", value: "9f:6b:de:ce:d8:46", want: "********d846"},
		{key: "mac", value: []byte("0x9F6BDECED846"), want: "********d846"},
		{key: "node", value: "ab", want: redactedValue},
		{key: "node", value: 3.5, want: redactedValue},
	}

	for _, tc := range cases {
		if got := SanitizeFieldValue(tc.key, tc.value); got != tc.want {
			t.Fatalf("SanitizeFieldValue(%q, %v) = %#v, want %#v", tc.key, tc.value, got, tc.want)
		}
	}
}

func TestSanitizeFieldValue_RedactsSecrets(t *testing.T) {
	for _, key := range []string{"seed", "entropy", "prng_seed", "client_secret", "auth_token"} {
		if got := SanitizeFieldValue(key, "value"); got != redactedValue {
			t.Fatalf("expected %s redacted, got %#v", key, got)
		}
	}
}

func TestSanitizeFieldValue_PassesThroughOrdinaryValues(t *testing.T) {
	if got := SanitizeFieldValue("scheme", "v7\r\n"); got != "v7" {
		t.Fatalf("expected sanitized string, got %#v", got)
	}
	if got := SanitizeFieldValue("lag", uint64(12)); got != uint64(12) {
		t.Fatalf("expected uint64 preserved, got %#v", got)
	}
	if got := SanitizeFieldValue("", nil); got != nil {
		t.Fatalf("expected nil preserved, got %#v", got)
	}

	nested, ok := SanitizeFieldValue("ctx", map[string]any{"node": uint64(0x1234), "ok": []any{"a\n", 1}}).(map[string]any)
	if !ok {
		t.Fatal("expected map result")
	}
	if nested["node"] != "********1234" {
		t.Fatalf("expected nested node masked, got %#v", nested["node"])
	}
	list, ok := nested["ok"].([]any)
	if !ok || list[0] != "a" || list[1] != 1 {
		t.Fatalf("unexpected nested list: %#v", nested["ok"])
	}

	if got := SanitizeFieldValue("duration", struct{ N int }{N: 3}); got != "{3}" {
		t.Fatalf("expected formatted struct, got %#v", got)
	}
}
