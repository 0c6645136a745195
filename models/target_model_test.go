package models

import "testing"

func TestMajorVersion(t *testing.T) {
	cases := []struct {
		version string
		want    int
	}{
		{"8.0.36-log", 8},
		{"5.7.44", 5},
		{"16.2 (Debian 16.2-1.pgdg120+2)", 16},
		{"19.0.0.0.0", 19},
		{"", 0},
		{"unknown", 0},
		{"  10.5  ", 10},
	}
	for _, c := range cases {
		target := &TargetSystem{Version: c.version}
		if got := target.MajorVersion(); got != c.want {
			t.Errorf("MajorVersion(%q) = %d, want %d", c.version, got, c.want)
		}
	}
}
