package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteLinks writes links to w, one per line, each followed by a newline.
func WriteLinks(w io.Writer, links []string) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	return io.WriteString(w, strings.Join(links, "\n")+"\n")
}

// WriteLinksFile overwrites path with links, one per line.
// The file is replaced atomically so readers never see a partial list.
func WriteLinksFile(path string, links []string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary output file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()           //nolint:errcheck // already failing
			_ = os.Remove(tmp.Name()) //nolint:errcheck // best effort cleanup
		}
	}()

	if _, err = WriteLinks(tmp, links); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // output is meant to be shared
		return fmt.Errorf("failed to set output file mode: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace output file: %w", err)
	}
	return nil
}
