package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// eachClass calls fn with the bytes of every class file named by path: the
// file itself, or each .class entry of a jar or zip archive.
func eachClass(path string, fn func(name string, data []byte) error) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jar", ".zip":
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read class file: %w", err)
		}
		return fn(path, data)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		if err := fn(f.Name, data); err != nil {
			return err
		}
	}
	return nil
}
