package skills

import (
	"reflect"
	"testing"
)

func TestSplitArguments(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`a b c`, []string{"a", "b", "c"}},
		{`"one two" three`, []string{"one two", "three"}},
		{`'single quoted' x`, []string{"single quoted", "x"}},
		{`escaped\ space next`, []string{"escaped space", "next"}},
		{`quote\"inside out`, []string{`quote"inside`, "out"}},
		{``, nil},
		{`   `, nil},
	}
	for _, tt := range tests {
		got := SplitArguments(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitArguments(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTryParseJSON(t *testing.T) {
	obj, ok := TryParseJSON(`{"path": "/tmp/x", "n": 3}`)
	if !ok {
		t.Fatal("valid object should parse")
	}
	if obj["path"] != "/tmp/x" {
		t.Fatalf("got %v", obj)
	}

	if _, ok := TryParseJSON(`not json`); ok {
		t.Fatal("plain text must not parse")
	}
	if _, ok := TryParseJSON(`[1,2,3]`); ok {
		t.Fatal("arrays are not skill arguments")
	}
}

func TestSanitizePath(t *testing.T) {
	if got := SanitizePath(`  "/tmp/a.txt"  `); got != "/tmp/a.txt" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizePath(`'/tmp/b'`); got != "/tmp/b" {
		t.Fatalf("got %q", got)
	}
}

func TestUnescape(t *testing.T) {
	if got := Unescape(`line1\nline2\ttabbed`); got != "line1\nline2\ttabbed" {
		t.Fatalf("got %q", got)
	}
	if got := Unescape(`back\\slash \"quoted\"`); got != `back\slash "quoted"` {
		t.Fatalf("got %q", got)
	}
	// Unknown escapes pass through untouched.
	if got := Unescape(`\d+`); got != `\d+` {
		t.Fatalf("got %q", got)
	}
}

func TestFlagToken(t *testing.T) {
	rest, value, found := flagToken(`"k" --category=core --content="x"`, "--category=")
	if !found || value != "core" {
		t.Fatalf("value = %q, found = %v", value, found)
	}
	if rest != `"k"  --content="x"` {
		t.Fatalf("rest = %q", rest)
	}

	rest, value, found = flagToken(`"k" --content="x" --category="daily"`, "--category=")
	if !found || value != "daily" {
		t.Fatalf("value = %q, found = %v", value, found)
	}
	if rest != `"k" --content="x" ` {
		t.Fatalf("rest = %q", rest)
	}

	if _, _, found := flagToken(`"k" --content="x"`, "--category="); found {
		t.Fatal("absent marker must report not found")
	}
}

func TestFlagValue(t *testing.T) {
	before, value, found := flagValue(`/tmp/a.txt --content="hello world"`, "--content=")
	if !found {
		t.Fatal("marker should be found")
	}
	if value != "hello world" {
		t.Fatalf("value = %q", value)
	}
	if before != "/tmp/a.txt " {
		t.Fatalf("before = %q", before)
	}

	if _, _, found := flagValue("/tmp/a.txt", "--content="); found {
		t.Fatal("absent marker must report not found")
	}
}
