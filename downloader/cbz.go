package downloader

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// CreateCBZ packs files, sorted by name, into a comic book archive at output.
func CreateCBZ(files []string, output string) (err error) {
	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("cbz: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("cbz: close %s: %w", output, cerr)
		}
	}()

	z := zip.NewWriter(out)
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	for _, file := range sorted {
		if err := addFileToZip(z, file); err != nil {
			_ = z.Close()
			return err
		}
	}
	if err := z.Close(); err != nil {
		return fmt.Errorf("cbz: %w", err)
	}
	return nil
}

func addFileToZip(z *zip.Writer, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("cbz: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("cbz: %w", err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("cbz: %w", err)
	}
	hdr.Name = filepath.Base(file)
	// page images are already compressed
	hdr.Method = zip.Store

	w, err := z.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("cbz: %w", err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("cbz: add %s: %w", file, err)
	}
	return nil
}
