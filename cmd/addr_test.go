package cmd

import "testing"

func TestValidateAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"valid localhost", "localhost:8890", false},
		{"valid ip", "127.0.0.1:8890", false},
		{"valid wildcard host", ":8890", false},
		{"port zero auto-assign", "127.0.0.1:0", false},
		{"missing port", "127.0.0.1", true},
		{"non-numeric port", "127.0.0.1:abc", true},
		{"port out of range", "127.0.0.1:70000", true},
		{"host with whitespace", "bad host:8890", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAddr(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestParseServeAddr_Positional(t *testing.T) {
	withArgs(t, []string{"nbagent", "serve", ":9000"})

	addr, err := parseServeAddr()
	if err != nil {
		t.Fatalf("parseServeAddr: %v", err)
	}
	if addr != ":9000" {
		t.Errorf("addr = %q, want %q", addr, ":9000")
	}
}

func TestParseServeAddr_Flag(t *testing.T) {
	withArgs(t, []string{"nbagent", "serve", "--addr", "localhost:9001"})

	addr, err := parseServeAddr()
	if err != nil {
		t.Fatalf("parseServeAddr: %v", err)
	}
	if addr != "localhost:9001" {
		t.Errorf("addr = %q, want %q", addr, "localhost:9001")
	}
}

func TestParseServeAddr_Default(t *testing.T) {
	withArgs(t, []string{"nbagent", "serve"})

	addr, err := parseServeAddr()
	if err != nil {
		t.Fatalf("parseServeAddr: %v", err)
	}
	if addr != "127.0.0.1:8890" {
		t.Errorf("addr = %q, want default", addr)
	}
}

func TestParseServeAddr_Invalid(t *testing.T) {
	withArgs(t, []string{"nbagent", "serve", "not-an-addr"})

	if _, err := parseServeAddr(); err == nil {
		t.Error("expected error for invalid address")
	}
}
