package bucket

import (
	"fmt"
	"io"
	"os"
)

type spooled struct {
	*os.File
}

func (s spooled) Close() error {
	err := s.File.Close()
	os.Remove(s.File.Name())
	return err
}

// spool copies r into a temporary file so it can be re-read and measured.
func spool(r io.Reader) (io.ReadSeekCloser, int64, error) {
	f, err := os.CreateTemp("", "vibe-upload-*")
	if err != nil {
		return nil, 0, fmt.Errorf("create spool file: %w", err)
	}
	s := spooled{f}
	n, err := io.Copy(f, r)
	if err != nil {
		s.Close()
		return nil, 0, fmt.Errorf("spool upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		s.Close()
		return nil, 0, fmt.Errorf("rewind spool: %w", err)
	}
	return s, n, nil
}
