package align

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// An empty zip is 22 bytes (end-of-central-directory record only); a
// verified archive must be larger than this.
const emptyArchiveSize = 22

// pack bundles every file under workdir, recursively and including
// hidden entries, into workdir/<name>. The archive being written is
// excluded from itself. Entry names are slash-separated paths relative
// to workdir.
func pack(workdir, name string) error {
	archivePath := filepath.Join(workdir, name)
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(workdir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == archivePath {
			return nil
		}
		rel, err := filepath.Rel(workdir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})

	if walkErr != nil {
		zw.Close()
		out.Close()
		return fmt.Errorf("pack %s: %w", name, walkErr)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finalize archive: %w", err)
	}
	return out.Close()
}

// verifyArchive confirms the packaged archive exists and is non-trivially
// sized after packing completes.
func verifyArchive(workdir, name string) error {
	info, err := os.Stat(filepath.Join(workdir, name))
	if err != nil {
		return fmt.Errorf("archive missing after packaging: %w", err)
	}
	if info.Size() <= emptyArchiveSize {
		return fmt.Errorf("archive %s is empty (%d bytes)", name, info.Size())
	}
	return nil
}
