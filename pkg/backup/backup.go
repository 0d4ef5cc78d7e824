// Package backup copies a directory tree into a timestamped destination and produces
// checksum manifests and compressed archives of the copy.
package backup

import (
	"archive/tar"
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/crypto/blake2b"
)

// ManifestName is written at the top of every backup directory.
const ManifestName = "MANIFEST.b2sum"

// Timestamp formats the backup suffix; colons are avoided so the name is portable.
func Timestamp(now time.Time) string {
	return now.UTC().Format("2006-01-02T15-04-05.000Z")
}

// CopyToTimestamped copies source into root/backup-<timestamp> and returns the destination
// and the number of files copied. When root lives inside source it is not copied into itself;
// root and source must differ.
// Only regular files and directories are copied.
func CopyToTimestamped(source, root string, now time.Time) (string, int, error) {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return "", 0, fmt.Errorf("resolve backup source: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", 0, fmt.Errorf("resolve backup root: %w", err)
	}
	if absRoot == absSource {
		return "", 0, fmt.Errorf("backup root %s is the backup source", absRoot)
	}
	dest := filepath.Join(absRoot, "backup-"+Timestamp(now))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", 0, fmt.Errorf("create backup directory: %w", err)
	}

	files := 0
	err = filepath.WalkDir(absSource, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path == absRoot {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(absSource, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type().IsRegular():
			if err := copyFile(path, target); err != nil {
				return err
			}
			files++
		}
		return nil
	})
	if err != nil {
		return "", files, fmt.Errorf("copy backup tree: %w", err)
	}
	return dest, files, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// DirectorySize sums the sizes of every regular file under dir.
func DirectorySize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("compute directory size: %w", err)
	}
	return size, nil
}

// WriteManifest records a BLAKE2b-256 digest for each file under dir, sorted by path.
func WriteManifest(dir string) (string, error) {
	sums, err := digestTree(dir)
	if err != nil {
		return "", err
	}
	paths := make([]string, 0, len(sums))
	for p := range sums {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "%s  %s\n", sums[p], p)
	}
	manifest := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(manifest, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return manifest, nil
}

// VerifyManifest re-hashes the files listed in dir's manifest and reports the first mismatch.
func VerifyManifest(dir string) error {
	file, err := os.Open(filepath.Join(dir, ManifestName))
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close() //nolint:errcheck

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		want, rel, ok := strings.Cut(scanner.Text(), "  ")
		if !ok {
			return fmt.Errorf("malformed manifest line %q", scanner.Text())
		}
		got, err := digestFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("checksum mismatch for %s", rel)
		}
	}
	return scanner.Err()
}

func digestTree(dir string) (map[string]string, error) {
	sums := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == ManifestName {
			return nil
		}
		sum, err := digestFile(path)
		if err != nil {
			return err
		}
		sums[filepath.ToSlash(rel)] = sum
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hash backup tree: %w", err)
	}
	return sums, nil
}

func digestFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Archive writes dir as a brotli-compressed tar stream to dest and returns the archive size.
func Archive(dir, dest string) (int64, error) {
	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	defer out.Close() //nolint:errcheck

	bw := brotli.NewWriterLevel(out, brotli.DefaultCompression)
	tw := tar.NewWriter(bw)

	base := filepath.Base(dir)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(base, rel))
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close() //nolint:errcheck
		_, err = io.Copy(tw, file)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("write archive: %w", err)
	}
	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("close tar: %w", err)
	}
	if err := bw.Close(); err != nil {
		return 0, fmt.Errorf("close brotli: %w", err)
	}
	info, err := out.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ReadArchive lists the entries of an archive produced by Archive, mapping name to content.
// Directories map to an empty string.
func ReadArchive(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer file.Close() //nolint:errcheck

	entries := make(map[string]string)
	tr := tar.NewReader(brotli.NewReader(file))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read archive entry %s: %w", hdr.Name, err)
		}
		entries[hdr.Name] = string(body)
	}
	return entries, nil
}

// VerifyArchive checks that archive holds exactly the files of dir with matching digests.
// The manifest itself is not compared.
func VerifyArchive(archive, dir string) error {
	entries, err := ReadArchive(archive)
	if err != nil {
		return err
	}
	want, err := digestTree(dir)
	if err != nil {
		return err
	}
	prefix := filepath.Base(dir) + "/"
	seen := 0
	for name, body := range entries {
		if strings.HasSuffix(name, "/") {
			continue
		}
		rel := strings.TrimPrefix(name, prefix)
		if rel == ManifestName {
			continue
		}
		sum, ok := want[rel]
		if !ok {
			return fmt.Errorf("archive has unexpected entry %s", name)
		}
		got := blake2b.Sum256([]byte(body))
		if hex.EncodeToString(got[:]) != sum {
			return fmt.Errorf("archive checksum mismatch for %s", rel)
		}
		seen++
	}
	if seen != len(want) {
		return fmt.Errorf("archive holds %d of %d files", seen, len(want))
	}
	return nil
}
