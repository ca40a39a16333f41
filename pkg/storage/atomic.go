package storage

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

// writeAtomic writes via a temp file in the target directory and renames it,
// so readers never see a partial artifact.
func writeAtomic(path string, write func(w io.Writer) error) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	buf := bufio.NewWriter(tmp)
	if err = write(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteStream stores the content of r at path.
func WriteStream(path string, r io.Reader) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}
