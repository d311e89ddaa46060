// Package jar runs the remap pipeline over jar archives: class entries
// are rewritten and renamed, signing artifacts are dropped, and
// everything else copies through unchanged.
package jar

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// Classpath serves raw class bytes by internal class name, for
// inheritance lookups during member resolution. Entries from archives
// added earlier shadow later ones.
type Classpath struct {
	entries map[string]*zip.File
	closers []io.Closer
}

// NewClasspath returns an empty classpath.
func NewClasspath() *Classpath {
	return &Classpath{entries: make(map[string]*zip.File)}
}

// Add opens a jar and indexes its class entries.
func (cp *Classpath) Add(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open classpath jar %s: %w", path, err)
	}
	cp.closers = append(cp.closers, zr)
	cp.AddReader(&zr.Reader)
	return nil
}

// AddReader indexes the class entries of an already-open archive.
func (cp *Classpath) AddReader(zr *zip.Reader) {
	for _, f := range zr.File {
		if _, ok := cp.entries[f.Name]; !ok {
			cp.entries[f.Name] = f
		}
	}
}

// Bytes returns the class file bytes for an internal class name, or nil
// when the class is not on the classpath or cannot be read. A nil
// return shortens the resolver's ancestor walk rather than failing it.
func (cp *Classpath) Bytes(name string) []byte {
	f, ok := cp.entries[name+".class"]
	if !ok {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}
	return data
}

// Close releases the archives opened by Add.
func (cp *Classpath) Close() error {
	var first error
	for _, c := range cp.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
