package etag

import (
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tag := Generate(1, ts)
	if !strings.HasPrefix(tag, `W/"`) || !strings.HasSuffix(tag, `"`) {
		t.Errorf("Generate() = %v, want format W/\"...\"", tag)
	}
	if tag != Generate(1, ts) {
		t.Error("Generate() is not deterministic")
	}
	if tag == Generate(2, ts) {
		t.Error("different note IDs produced the same ETag")
	}
	if tag == Generate(1, ts.Add(time.Nanosecond)) {
		t.Error("different update times produced the same ETag")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`W/"abc"`, "abc"},
		{`"abc"`, "abc"},
		{"abc", "abc"},
		{` W/"abc" `, "abc"},
		{"", ""},
		{`W/`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := Parse(tt.header); got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	current := `W/"abc"`
	tests := []struct {
		name    string
		ifMatch string
		current string
		want    bool
	}{
		{"No header", "", current, true},
		{"Wildcard existing", "*", current, true},
		{"Wildcard missing", "*", "", false},
		{"Exact weak", `W/"abc"`, current, true},
		{"Strong form of same value", `"abc"`, current, true},
		{"Mismatch", `W/"xyz"`, current, false},
		{"List containing current", `W/"xyz", W/"abc"`, current, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.ifMatch, tt.current); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.ifMatch, tt.current, got, tt.want)
			}
		})
	}
}

func TestNoneMatch(t *testing.T) {
	current := `W/"abc"`
	tests := []struct {
		name        string
		ifNoneMatch string
		current     string
		want        bool
	}{
		{"No header", "", current, true},
		{"Wildcard existing", "*", current, false},
		{"Wildcard missing", "*", "", true},
		{"Same tag", `W/"abc"`, current, false},
		{"Other tag", `W/"xyz"`, current, true},
		{"List containing current", `"xyz","abc"`, current, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NoneMatch(tt.ifNoneMatch, tt.current); got != tt.want {
				t.Errorf("NoneMatch(%q, %q) = %v, want %v", tt.ifNoneMatch, tt.current, got, tt.want)
			}
		})
	}
}
