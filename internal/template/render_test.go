package template

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   string
		subs map[string]any
		want string
	}{
		{"single key", "Hello {{name}}", map[string]any{"name": "Sam"}, "Hello Sam"},
		{"repeated key", "{{x}}-{{x}}-{{x}}", map[string]any{"x": "a"}, "a-a-a"},
		{"multiple keys", "{{greeting}}, {{name}}!", map[string]any{"greeting": "Hi", "name": "Ana"}, "Hi, Ana!"},
		{"unmatched left verbatim", "Hello {{name}} from {{team}}", map[string]any{"name": "Sam"}, "Hello Sam from {{team}}"},
		{"case sensitive", "Hello {{Name}}", map[string]any{"name": "Sam"}, "Hello {{Name}}"},
		{"no whitespace trimming", "Hello {{ name }}", map[string]any{"name": "Sam"}, "Hello {{ name }}"},
		{"number value", "Total: {{count}}", map[string]any{"count": float64(3)}, "Total: 3"},
		{"fractional value", "Price: {{p}}", map[string]any{"p": 9.5}, "Price: 9.5"},
		{"bool value", "Active: {{on}}", map[string]any{"on": true}, "Active: true"},
		{"nil value", "[{{v}}]", map[string]any{"v": nil}, "[]"},
		{"no recursive expansion", "{{a}} {{b}}", map[string]any{"a": "{{b}}", "b": "B"}, "{{b}} B"},
		{"prefix keys", "{{a}}} {{a}}", map[string]any{"a": "1", "a}": "2"}, "2 1"},
		{"empty body", "", map[string]any{"a": "1"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.in, tt.subs); got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRender_EmptySubstitutionsReturnsInput(t *testing.T) {
	body := "Hello {{name}}\nBye"
	if got := Render(body, nil); got != body {
		t.Errorf("expected unchanged body with nil map, got %q", got)
	}
	if got := Render(body, map[string]any{}); got != body {
		t.Errorf("expected unchanged body with empty map, got %q", got)
	}
}

func TestRender_Idempotent(t *testing.T) {
	subs := map[string]any{"name": "Sam", "n": float64(2)}
	bodies := []string{
		"Hello {{name}}, you have {{n}} messages {{missing}}",
		"{{name}}{{name}}",
		"plain text",
	}
	for _, body := range bodies {
		once := Render(body, subs)
		twice := Render(once, subs)
		if once != twice {
			t.Errorf("render not idempotent for %q: %q vs %q", body, once, twice)
		}
	}
}

func TestHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"line one\nline two", "line one<br>line two"},
		{"crlf\r\nbreak", "crlf<br>break"},
		{"no breaks", "no breaks"},
		{"<b>bold</b>\n", "<b>bold</b><br>"},
	}
	for _, tt := range tests {
		if got := HTML(tt.in); got != tt.want {
			t.Errorf("HTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
