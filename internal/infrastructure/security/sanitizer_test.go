package security

import "testing"

func TestSanitizer(t *testing.T) {
	s := NewSanitizer()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "Website redesign", "Website redesign"},
		{"ampersand survives", "Smith & Sons", "Smith & Sons"},
		{"script removed", `Acme<script>alert(1)</script>`, "Acme"},
		{"tags stripped", `<b>Bold</b> client`, "Bold client"},
		{"event handler", `<img src=x onerror="alert(1)">Logo`, "Logo"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
