package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	data := `
[decompile]
indent = "  "
end-comments = false
workers = 0

[cache]
enabled = true
path = "out/cache.db"
`
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	opts := c.Options()
	if opts.IndentMark != "  " {
		t.Errorf("IndentMark = %q, want %q", opts.IndentMark, "  ")
	}
	if opts.EndComments {
		t.Errorf("EndComments = true, want false")
	}
	if opts.Workers != 1 {
		t.Errorf("Workers = %d, want 1", opts.Workers)
	}
	if opts.MaxCodeSize != 65535 {
		t.Errorf("MaxCodeSize = %d, want the default 65535", opts.MaxCodeSize)
	}
	want := filepath.Join(c.Dir, "out", "cache.db")
	if got := c.CachePath(); got != want {
		t.Errorf("CachePath() = %q, want %q", got, want)
	}
}

func TestDefaults(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c.Dir != "" {
		t.Errorf("Dir = %q, want empty", c.Dir)
	}
	if c.CachePath() != "" {
		t.Errorf("CachePath() = %q, want empty with caching off", c.CachePath())
	}
	if c.Options().IndentMark != "    " {
		t.Errorf("IndentMark = %q, want four spaces", c.Options().IndentMark)
	}
	if !c.Options().EndComments {
		t.Errorf("EndComments = false, want true by default")
	}
}

func TestLoadError(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[decompile\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(root); err == nil {
		t.Errorf("Load of malformed toml succeeded")
	}
}
