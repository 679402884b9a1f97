package main

import (
	"archive/zip"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestEachClass(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "lib.jar")
	f, err := os.Create(jar)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, name := range []string{"demo/A.class", "META-INF/MANIFEST.MF", "demo/B.class"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(name))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	var names []string
	err = eachClass(jar, func(name string, data []byte) error {
		if string(data) != name {
			t.Errorf("data of %s = %q", name, data)
		}
		names = append(names, name)
		return nil
	})
	if err != nil {
		t.Fatalf("eachClass: %v", err)
	}
	if want := []string{"demo/A.class", "demo/B.class"}; !slices.Equal(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}

	single := filepath.Join(dir, "C.class")
	if err := os.WriteFile(single, []byte{0xCA}, 0o644); err != nil {
		t.Fatal(err)
	}
	names = nil
	eachClass(single, func(name string, data []byte) error {
		names = append(names, name)
		return nil
	})
	if !slices.Equal(names, []string{single}) {
		t.Errorf("names = %v, want [%s]", names, single)
	}
}
