package session

import "testing"

func TestGenerateSessionCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := generateSessionCode()
		if !ValidCode(code) {
			t.Fatalf("generated invalid code %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 190 {
		t.Errorf("expected mostly distinct codes, got %d of 200", len(seen))
	}
}

func TestNormalizeAndValidCode(t *testing.T) {
	tests := []struct {
		in         string
		normalized string
		valid      bool
	}{
		{"ABC234", "ABC234", true},
		{" abc234\n", "ABC234", true},
		{"ABC23", "ABC23", false},
		{"ABC2345", "ABC2345", false},
		{"ABC0I1", "ABC0I1", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeCode(tt.in)
			if got != tt.normalized {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.normalized)
			}
			if ValidCode(got) != tt.valid {
				t.Errorf("ValidCode(%q) = %v, want %v", got, !tt.valid, tt.valid)
			}
		})
	}
}
