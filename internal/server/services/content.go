package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of the content is inspected for its type.
const sniffLen = 3072

// detectContentType sniffs the head of r and returns the MIME type
// together with a reader that still yields the complete content.
func detectContentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("%w: read content: %w", common.ErrStorageRead, err)
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// spool copies r of unknown length into a temporary file so its size is
// known before anything is written to storage. limit > 0 aborts with
// ErrFileTooLarge once exceeded. The returned cleanup removes the file.
func spool(r io.Reader, limit int64) (*os.File, int64, func(), error) {
	tmp, err := os.CreateTemp("", "gophdrive-upload-*")
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%w: spool: %w", common.ErrStorageWrite, err)
	}
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("%w: spool: %w", common.ErrStorageWrite, err)
	}
	if limit > 0 && n > limit {
		cleanup()
		return nil, 0, nil, fmt.Errorf("%w: more than %d bytes", common.ErrFileTooLarge, limit)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("%w: spool: %w", common.ErrStorageWrite, err)
	}
	return tmp, n, cleanup, nil
}
