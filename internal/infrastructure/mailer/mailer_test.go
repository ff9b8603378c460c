package mailer

import (
	"strings"
	"testing"
)

func TestConfigured(t *testing.T) {
	full := Config{
		Host: "smtp.example.com", Username: "u", Password: "p",
		From: "alerts@example.com", To: []string{"ops@example.com"},
	}
	if !full.Configured() {
		t.Error("complete config should report configured")
	}

	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"no_host", func(c *Config) { c.Host = "" }},
		{"no_password", func(c *Config) { c.Password = "" }},
		{"no_recipients", func(c *Config) { c.To = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := full
			tc.mut(&c)
			if c.Configured() {
				t.Error("incomplete config should not report configured")
			}
		})
	}
}

func TestEncodeBase64WithLineBreaks(t *testing.T) {
	encoded := encodeBase64WithLineBreaks(strings.Repeat("scorecard body ", 40))

	for i, line := range strings.Split(encoded, "\r\n") {
		if len(line) > 76 {
			t.Errorf("line %d is %d chars, MIME caps base64 lines at 76", i, len(line))
		}
	}
}

func TestGenerateBoundary(t *testing.T) {
	a, b := generateBoundary(), generateBoundary()
	if a == b {
		t.Error("boundaries should be random")
	}
	if !strings.HasPrefix(a, "adpulse_") {
		t.Errorf("boundary = %q", a)
	}
}

func TestSendHTMLUnconfigured(t *testing.T) {
	m := New(Config{})
	if err := m.SendHTML("subject", "<p>body</p>", "body"); err == nil {
		t.Error("sending without configuration should error")
	}
}
