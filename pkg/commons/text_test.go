package commons

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"plain", "A cat", "A cat"},
		{"markup", `<div class="description en"><span>A <a href="/wiki/Cat">cat</a> on a mat</span></div>`, "A cat on a mat"},
		{"whitespace collapsed", "<p>Line one</p>\n<p>Line   two</p>", "Line one Line two"},
		{"entities", "Tom &amp; Jerry", "Tom & Jerry"},
		{"script dropped", "<p>Hi</p><script>alert(1)</script>", "Hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
