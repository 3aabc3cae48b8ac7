package warehouse

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "users", "users"},
		{"upper lowered", "Users", "users"},
		{"spaces", "user events", "user_events"},
		{"mixed punctuation", "user-events.v2", "user_events_v2"},
		{"runs collapse", "a -. b", "a_b"},
		{"diacritics stripped", "Événements", "evenements"},
		{"leading trailing trimmed", "  -users- ", "users"},
		{"symbols dropped", "or&ders!", "orders"},
		{"digits kept", "2024_logs", "2024_logs"},
		{"empty", "", ""},
		{"only junk", "!!!", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeName(tt.in); got != tt.want {
				t.Fatalf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncateName(t *testing.T) {
	t.Parallel()

	if got := TruncateName("short"); got != "short" {
		t.Fatalf("TruncateName(short) = %q", got)
	}

	long := strings.Repeat("a", 100)
	got := TruncateName(long)
	if len(got) != 63 {
		t.Fatalf("len = %d, want 63", len(got))
	}

	// Truncation must not split a multi-byte rune.
	multi := strings.Repeat("é", 40) // 80 bytes
	got = TruncateName(multi)
	if len(got) > 63 {
		t.Fatalf("len = %d, want <= 63", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated name is not valid UTF-8: %q", got)
	}
}

func TestTableName(t *testing.T) {
	t.Parallel()

	if got := TableName("User Événements"); got != "user_evenements" {
		t.Fatalf("TableName = %q, want %q", got, "user_evenements")
	}
	long := strings.Repeat("collection_", 10)
	if got := TableName(long); len(got) > 63 {
		t.Fatalf("TableName did not truncate: %d bytes", len(got))
	}
}
