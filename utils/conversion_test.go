package utils

import "testing"

func TestEscapeSQL(t *testing.T) {
	if got := EscapeSQL("o'brien"); got != "o''brien" {
		t.Errorf("Expected o''brien, got %q", got)
	}
	if got := EscapeSQL("plain"); got != "plain" {
		t.Errorf("Expected plain, got %q", got)
	}
}

func TestToString(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{[]byte("bytes"), "bytes"},
		{42, "42"},
	}
	for _, c := range cases {
		if got := ToString(c.in); got != c.want {
			t.Errorf("ToString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToBool(t *testing.T) {
	truthy := []interface{}{true, 1, int64(1), "Y", "yes", []byte("Y"), "TRUE", "on", " t "}
	for _, v := range truthy {
		if !ToBool(v) {
			t.Errorf("Expected ToBool(%v) = true", v)
		}
	}
	falsy := []interface{}{nil, false, 0, int64(0), "N", "no", "", "off", "garbage"}
	for _, v := range falsy {
		if ToBool(v) {
			t.Errorf("Expected ToBool(%v) = false", v)
		}
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int64
	}{
		{nil, 0},
		{int64(-1), -1},
		{7, 7},
		{"  12  ", 12},
		{[]byte("34"), 34},
		{"not a number", 0},
	}
	for _, c := range cases {
		if got := ToInt64(c.in); got != c.want {
			t.Errorf("ToInt64(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestIsValidHost(t *testing.T) {
	valid := []string{"%", "localhost", "LocalHost", "10.0.0.5", "::1", "db.example.com", "db_replica-01"}
	for _, h := range valid {
		if !IsValidHost(h) {
			t.Errorf("Expected %q valid", h)
		}
	}
	invalid := []string{"", ".example.com", "host-", "bad host", "db;drop"}
	for _, h := range invalid {
		if IsValidHost(h) {
			t.Errorf("Expected %q invalid", h)
		}
	}
}
