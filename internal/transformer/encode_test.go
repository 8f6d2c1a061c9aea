package transformer

import "testing"

func TestEncodePlainPolicy(t *testing.T) {
	t.Parallel()

	var p EncodePolicy // zero value: plain text, plain lists

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"string with newline", "a\nb", `a\nb`},
		{"string with crlf", "a\r\nb", `a\nb`},
		{"bool", true, "true"},
		{"integral float", float64(42), "42"},
		{"fractional float", float64(1.5), "1.5"},
		{"big id float", float64(1367531), "1367531"},
		{"list plain", []any{"a", "b"}, "a,b"},
		{"list with number", []any{"a", float64(2)}, "a,2"},
		{"list with newline element", []any{"a\nb"}, `a\nb`},
		{"nested list element stays json", []any{[]any{"x"}}, `["x"]`},
		{"map stays json", map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := p.Encode(tc.in); got != tc.want {
				t.Errorf("Encode(%#v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestEncodeTextPolicy(t *testing.T) {
	t.Parallel()

	p := EncodePolicy{Text: true}

	if got := p.Encode("a\nb"); got != `"a\nb"` {
		t.Errorf("text cell = %q, want JSON string with escaped newline", got)
	}
	// Non-strings are unaffected by the text policy.
	if got := p.Encode(float64(7)); got != "7" {
		t.Errorf("number under text policy = %q, want 7", got)
	}
	if got := p.Encode([]any{"a", "b"}); got != "a,b" {
		t.Errorf("list under text policy = %q, want plain join", got)
	}
}

func TestEncodeListsPolicy(t *testing.T) {
	t.Parallel()

	p := EncodePolicy{Lists: true}

	if got := p.Encode([]any{"a", "b"}); got != `["a","b"]` {
		t.Errorf("list cell = %q, want JSON array", got)
	}
	if got := p.Encode("plain"); got != "plain" {
		t.Errorf("string under lists policy = %q, want plain", got)
	}
}

func TestEncodeAllPolicy(t *testing.T) {
	t.Parallel()

	p := EncodePolicy{All: true}

	tests := []struct {
		in   any
		want string
	}{
		{"hello", `"hello"`},
		{float64(3), "3"},
		{true, "true"},
		{[]any{"a"}, `["a"]`},
		{map[string]any{"k": float64(1)}, `{"k":1}`},
	}
	for _, tc := range tests {
		if got := p.Encode(tc.in); got != tc.want {
			t.Errorf("Encode(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := p.Encode(nil); got != "" {
		t.Errorf("nil under all policy = %q, want empty", got)
	}
}
