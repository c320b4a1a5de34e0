// Package archive writes and extracts gzip-compressed tar archives of a
// directory tree.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrUnsafePath is returned when an archive entry would land outside the
// extraction directory.
var ErrUnsafePath = errors.New("archive entry escapes target directory")

// Options tune Create.
type Options struct {
	// Exclude is called with the slash-separated path of every entry
	// relative to the source root. Returning true skips the entry and,
	// for directories, everything below it.
	Exclude func(rel string, d fs.DirEntry) bool
}

// Create writes a tar.gz of every file below root to w. Entry names are
// relative to root. Regular files, directories and symlinks are stored
// with their mode and modification time.
func Create(ctx context.Context, root string, w io.Writer, opts Options) error {
	gz, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if opts.Exclude != nil && opts.Exclude(rel, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		return addEntry(tw, path, rel, d)
	})
	if walkErr != nil {
		_ = tw.Close()
		_ = gz.Close()
		return walkErr
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func addEntry(tw *tar.Writer, path, rel string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	} else if !info.Mode().IsRegular() && !info.IsDir() {
		// sockets, devices and fifos are not part of an application tree
		return nil
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = rel
	if info.IsDir() {
		hdr.Name += "/"
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = io.Copy(tw, f)
	return err
}

// Extract unpacks the tar.gz read from r into dest, overwriting files that
// already exist. Modes and modification times are restored; ownership is
// left to the caller.
func Extract(ctx context.Context, r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer func() { _ = gz.Close() }()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	dest, err = filepath.Abs(dest)
	if err != nil {
		return err
	}
	// links created by this archive; nothing may be written through them
	links := make(map[string]bool)

	type dirTime struct {
		path string
		hdr  *tar.Header
	}
	var dirs []dirTime

	tr := tar.NewReader(gz)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		if err := throughLink(dest, target, links, hdr.Typeflag == tar.TypeDir); err != nil {
			return fmt.Errorf("%w: %s", err, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			dirs = append(dirs, dirTime{target, hdr})
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if !linkInside(dest, target, hdr.Linkname) {
				return fmt.Errorf("%w: %s -> %s", ErrUnsafePath, hdr.Name, hdr.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := os.RemoveAll(target); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
			links[target] = true
		}
	}

	// directory modes and times are applied last so that read-only
	// directories can still receive their children
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Chmod(dirs[i].path, dirs[i].hdr.FileInfo().Mode().Perm()); err != nil {
			return err
		}
		_ = os.Chtimes(dirs[i].path, dirs[i].hdr.ModTime, dirs[i].hdr.ModTime)
	}
	return nil
}

func writeFile(target string, r io.Reader, hdr *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if info, err := os.Lstat(target); err == nil && !info.Mode().IsRegular() {
		if err := os.RemoveAll(target); err != nil {
			return err
		}
	}

	mode := hdr.FileInfo().Mode().Perm()
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(target, mode); err != nil {
		return err
	}
	return os.Chtimes(target, hdr.ModTime, hdr.ModTime)
}

func safeJoin(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(dest, clean), nil
}

// within reports whether path is dest or below it. Both must be clean.
func within(dest, path string) bool {
	return path == dest || strings.HasPrefix(path, dest+string(filepath.Separator))
}

// linkInside reports whether a symlink at target pointing to linkname
// resolves to a location under dest.
func linkInside(dest, target, linkname string) bool {
	if linkname == "" {
		return false
	}
	resolved := filepath.FromSlash(linkname)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), resolved)
	}
	return within(dest, filepath.Clean(resolved))
}

// throughLink fails when an ancestor of target, or target itself when self
// is set, is a symlink created earlier in the same extraction.
func throughLink(dest, target string, links map[string]bool, self bool) error {
	if len(links) == 0 {
		return nil
	}
	p := target
	if !self {
		p = filepath.Dir(p)
	}
	for within(dest, p) && p != dest {
		if links[p] {
			return ErrUnsafePath
		}
		p = filepath.Dir(p)
	}
	return nil
}
