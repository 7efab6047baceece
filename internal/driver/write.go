package driver

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"ffigen/internal/diag"
	"ffigen/internal/emit"
	"ffigen/internal/logx"
)

// Write stores every output under dir/<target>/ and returns the written
// paths in sorted order. Paths are checked before anything is written, and
// each file is replaced atomically.
func Write(dir string, outs []*emit.Output) ([]string, error) {
	type pending struct {
		path    string
		content []byte
	}
	var files []pending
	bag := diag.NewBag(0)
	for _, out := range outs {
		base := filepath.Join(dir, out.Target)
		for _, f := range out.Files {
			rel := filepath.Clean(filepath.FromSlash(f.Path))
			if filepath.IsAbs(rel) || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				bag.Add(diag.Errorf(diag.ProjectIO, diag.NodeRef{}, "output path %q escapes the target directory", f.Path).WithTarget(out.Target))
				continue
			}
			files = append(files, pending{path: filepath.Join(base, rel), content: f.Content})
		}
	}
	if err := bag.Err(); err != nil {
		return nil, err
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := writeFileAtomic(f.path, f.content); err != nil {
			return written, diag.NewErrorf(diag.ProjectIO, diag.NodeRef{}, "%s: %v", f.path, err)
		}
		written = append(written, f.path)
	}
	slices.Sort(written)
	logx.L().Debug("wrote bindings", zap.String("dir", dir), zap.Int("files", len(written)))
	return written, nil
}

func writeFileAtomic(path string, content []byte) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".ffigen-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
