// Package archive reads program archives, it builds Walk abstraction on top of
// "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"golang.org/x/text/encoding"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The name argument is file name, decoded if necessary. If an
// error is returned, processing stops.
type WalkFunc func(name string, file *zip.File) error

// Walk walks the all files in the archive which names start with prefix,
// calling walkFn for each item. Since zip "standard" does not define file name
// encoding names not marked as UTF-8 are decoded with cp when it is not nil.
// Entries with path traversal components ("..") or absolute paths are
// rejected.
func Walk(archive, prefix string, cp encoding.Encoding, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			decoded, err := cp.NewDecoder().String(name)
			if err != nil {
				return fmt.Errorf("zip entry %q: unable to decode name: %w", name, err)
			}
			name = decoded
		}
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, prefix) {
			if err := walkFn(name, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadAll returns content of every file under prefix, keyed by name relative
// to prefix.
func ReadAll(archive, prefix string, cp encoding.Encoding) (map[string][]byte, error) {
	res := make(map[string][]byte)
	err := Walk(archive, prefix, cp, func(name string, f *zip.File) error {
		r, err := f.Open()
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", name, err)
		}
		defer r.Close()

		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", name, err)
		}
		res[strings.TrimPrefix(name, prefix)] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// IsArchive detects zip archives by content, so program archives do not
// need any particular extension.
func IsArchive(fname string) (bool, error) {
	f, err := os.Open(fname)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// enough for all signatures
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return filetype.IsType(head[:n], matchers.TypeZip), nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
