package domain

import "testing"

func TestMimeAllowed(t *testing.T) {
	cases := []struct {
		name      string
		detected  string
		allowlist []string
		want      bool
	}{
		{"empty allowlist permits all", "image/png", nil, true},
		{"exact match", "image/png", []string{"image/png"}, true},
		{"family wildcard", "image/jpeg", []string{"image/*"}, true},
		{"no match", "application/zip", []string{"image/*", "text/plain"}, false},
		{"case insensitive", "IMAGE/PNG", []string{"image/png"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MimeAllowed(tc.detected, tc.allowlist); got != tc.want {
				t.Fatalf("MimeAllowed(%q, %v) = %v, want %v", tc.detected, tc.allowlist, got, tc.want)
			}
		})
	}
}
