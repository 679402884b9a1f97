package lsp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dhamidi/jbcm/config"
)

func TestExecuteArguments(t *testing.T) {
	s := NewServer("test", config.Default(), nil)
	tests := []struct {
		name    string
		command string
		args    []any
		want    error
	}{
		{"NoArguments", CommandDecompile, nil, ErrBadArguments},
		{"NotAString", CommandFlow, []any{42.0}, ErrBadArguments},
		{"UnknownCommand", "jbcm.format", []any{"A.class"}, ErrUnknownCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Execute(t.Context(), tt.command, tt.args)
			if !errors.Is(err, tt.want) {
				t.Errorf("Execute = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExecuteReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Broken.class")
	if err := os.WriteFile(path, []byte{0xCA, 0xFE}, 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewServer("test", config.Default(), nil)
	if _, err := s.Execute(t.Context(), CommandDecompile, []any{"file://" + path}); err == nil {
		t.Errorf("decompiling a truncated class file succeeded")
	}
	if _, err := s.Execute(t.Context(), CommandFlow, []any{path}); err == nil {
		t.Errorf("analysing a truncated class file succeeded")
	}
}

func TestUseConfigReopensCache(t *testing.T) {
	root := t.TempDir()
	data := "[cache]\nenabled = true\npath = \"jbcm.db\"\n"
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := NewServer("test", config.Default(), nil)
	if err := s.useConfig(cfg); err != nil {
		t.Fatalf("useConfig: %v", err)
	}
	if s.store == nil {
		t.Fatalf("no cache opened for %s", cfg.CachePath())
	}
	if want := filepath.Join(cfg.Dir, "jbcm.db"); s.cachePath != want {
		t.Errorf("cachePath = %q, want %q", s.cachePath, want)
	}
	if _, err := os.Stat(s.cachePath); err != nil {
		t.Errorf("cache file: %v", err)
	}

	if err := s.useConfig(config.Default()); err != nil {
		t.Fatalf("useConfig: %v", err)
	}
	if s.store != nil || s.cachePath != "" {
		t.Errorf("cache still open at %q after caching was turned off", s.cachePath)
	}
}

func TestURIToPath(t *testing.T) {
	for in, want := range map[string]string{
		"file:///tmp/a/B.class": "/tmp/a/B.class",
		"rel/B.class":           "rel/B.class",
	} {
		got, err := uriToPath(in)
		if err != nil {
			t.Fatalf("uriToPath(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("uriToPath(%q) = %q, want %q", in, got, want)
		}
	}
}
