package jar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/odvcencio/rejar/pkg/mapping"
	"github.com/odvcencio/rejar/pkg/remap"
)

// Options configures one pipeline run.
type Options struct {
	Input  string
	Output string

	// Classpath lists additional jars consulted for ancestor lookups.
	// The input jar is always consulted first.
	Classpath []string

	Table            *mapping.Table
	RenameSynthetics bool
	Rules            remap.Rules

	// Log, when non-nil, receives one line per rewritten class.
	Log io.Writer
}

// Stats summarizes a completed run.
type Stats struct {
	Remapped int
	Copied   int
	Dropped  int
}

// isSignatureEntry reports whether a jar entry is a signing artifact.
// Signatures are invalid after content modification and must not be
// propagated.
func isSignatureEntry(name string) bool {
	if !strings.HasPrefix(name, "META-INF/") {
		return false
	}
	upper := strings.ToUpper(name)
	return strings.HasSuffix(upper, ".SF") || strings.HasSuffix(upper, ".RSA")
}

// Run remaps every class entry of the input jar into the output jar,
// preserving entry order. Any resolver or parser failure aborts the
// whole run and leaves no output file: a partially-renamed archive is
// worse than none.
func Run(opts Options) (*Stats, error) {
	zr, err := zip.OpenReader(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Input, err)
	}
	defer zr.Close()

	cp := NewClasspath()
	defer cp.Close()
	cp.AddReader(&zr.Reader)
	for _, path := range opts.Classpath {
		if err := cp.Add(path); err != nil {
			return nil, err
		}
	}

	cfg := &remap.Config{
		Resolver:         mapping.NewResolver(opts.Table, cp.Bytes),
		RenameSynthetics: opts.RenameSynthetics,
		Rules:            opts.Rules,
	}

	// Write to a temp file in the destination directory and rename
	// into place once the whole archive succeeded.
	dir := filepath.Dir(opts.Output)
	tmp, err := os.CreateTemp(dir, ".rejar-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	tmpName := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	stats := &Stats{}
	for _, f := range zr.File {
		switch {
		case isSignatureEntry(f.Name):
			stats.Dropped++
		case strings.HasSuffix(f.Name, ".class"):
			if err := remapEntry(cfg, zw, f, opts.Log); err != nil {
				discard()
				return nil, err
			}
			stats.Remapped++
		default:
			if err := copyEntry(zw, f); err != nil {
				discard()
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			stats.Copied++
		}
	}

	if err := zw.Close(); err != nil {
		discard()
		return nil, fmt.Errorf("finish output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("finish output: %w", err)
	}
	if err := os.Rename(tmpName, opts.Output); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("finish output: %w", err)
	}
	return stats, nil
}

func remapEntry(cfg *remap.Config, zw *zip.Writer, f *zip.File, log io.Writer) error {
	data, err := readEntry(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.Name, err)
	}
	res, err := remap.Remap(cfg, data)
	if err != nil {
		return fmt.Errorf("entry %s: %w", f.Name, err)
	}
	if log != nil && res.NewName != res.OldName {
		fmt.Fprintf(log, "%s -> %s\n", res.OldName, res.NewName)
	}
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   res.NewName + ".class",
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}
	_, err = w.Write(res.Bytes)
	return err
}

func copyEntry(zw *zip.Writer, f *zip.File) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   f.Name,
		Method: f.Method,
	})
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(w, rc)
	return err
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
