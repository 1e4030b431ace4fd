package main

import (
	"strings"
	"testing"

	"github.com/1broseidon/keyshell/internal/config"
)

func TestLauncherText(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		stdin       string
		interactive bool
		want        string
		wantErr     bool
	}{
		{"args joined", []string{"vol", "40"}, "", true, "vol 40", false},
		{"args win over stdin", []string{"mute"}, "lock\n", false, "mute", false},
		{"piped first line", nil, "kp 3000\nignored\n", false, "kp 3000", false},
		{"piped without newline", nil, "2+2", false, "2+2", false},
		{"interactive without args", nil, "", true, "", true},
		{"empty pipe", nil, "  \n", false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := launcherText(tt.args, strings.NewReader(tt.stdin), tt.interactive)
			if (err != nil) != tt.wantErr {
				t.Fatalf("launcherText err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("launcherText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		log, err := newLogger(config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("newLogger(%s): %v", format, err)
		}
		if !log.Desugar().Core().Enabled(-1) {
			t.Fatalf("%s logger should enable debug", format)
		}
	}
	if _, err := newLogger(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "file:/c.yaml:3:5"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml"}, "file:/c.yaml"},
		{config.Source{Kind: config.SourceDefault, Name: "history_size"}, "default:history_size"},
		{config.Source{Kind: config.SourceDefault}, "default"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Errorf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestRunConfigRejectsUnknownSubcommand(t *testing.T) {
	if code := runConfig([]string{"frobnicate"}); code != 2 {
		t.Fatalf("runConfig(frobnicate) = %d, want 2", code)
	}
	if code := runConfig([]string{"path", "extra"}); code != 2 {
		t.Fatalf("runConfig(path extra) = %d, want 2", code)
	}
}
