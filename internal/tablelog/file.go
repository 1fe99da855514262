package tablelog

import (
	"fmt"
	"os"
	"path/filepath"
)

// #region append
// Append encodes r at the end of dir/<name>.log, creating it if needed,
// and returns the path written. A tail left without its newline by an
// interrupted append is terminated first, so r starts on its own line.
func Append(dir string, r Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(r.Name))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	if err := terminateTail(f); err != nil {
		f.Close()
		return "", fmt.Errorf("append %s: %w", path, err)
	}
	if err := Encode(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("append %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func terminateTail(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte{'\n'})
	return err
}
// #endregion append

// #region load
// LoadLatest returns the most recent complete record stored at path.
func LoadLatest(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	rec, err := Decode(f)
	if err != nil {
		return Record{}, fmt.Errorf("load %s: %w", path, err)
	}
	return rec, nil
}
// #endregion load
