// Package storage keeps work order evidence photos on the local filesystem.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
)

const DefaultMaxPhotoBytes = 10 << 20

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// LocalPhotoStore writes photos under root. Paths handed back are relative to
// root so the directory can move between hosts.
type LocalPhotoStore struct {
	root     string
	maxBytes int64
}

func NewLocalPhotoStore(root string, maxBytes int64) (*LocalPhotoStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("photo root directory is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPhotoBytes
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve photo root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create photo root: %w", err)
	}
	return &LocalPhotoStore{root: abs, maxBytes: maxBytes}, nil
}

// Save sniffs the content type, names the file with a fresh id and rejects
// files over the size limit. name only contributes its extension check.
func (s *LocalPhotoStore) Save(ctx context.Context, dir, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if len(head) == 0 {
		return "", apperror.NewValidation("photo is empty").WithDetail("file", name)
	}
	ext, ok := allowedPhotoTypes[http.DetectContentType(head)]
	if !ok {
		return "", apperror.NewValidation("photo must be a JPEG, PNG or WebP image").WithDetail("file", name)
	}

	rel := filepath.Join(filepath.Clean(string(filepath.Separator)+dir), id.New().String()+ext)
	rel = strings.TrimPrefix(rel, string(filepath.Separator))
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create photo dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create photo: %w", err)
	}
	n, copyErr := io.Copy(f, io.LimitReader(br, s.maxBytes+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(full)
		return "", fmt.Errorf("write photo: %w", copyErr)
	case n > s.maxBytes:
		_ = os.Remove(full)
		return "", apperror.NewValidation("photo exceeds the size limit").
			WithDetail("file", name).
			WithDetail("maxBytes", s.maxBytes)
	case closeErr != nil:
		_ = os.Remove(full)
		return "", fmt.Errorf("close photo: %w", closeErr)
	}
	return filepath.ToSlash(rel), nil
}

// Delete is a no-op for files that are already gone.
func (s *LocalPhotoStore) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(filepath.FromSlash(path))
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

// Open serves a stored photo.
func (s *LocalPhotoStore) Open(path string) (*os.File, error) {
	full, err := s.resolve(filepath.FromSlash(path))
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (s *LocalPhotoStore) resolve(rel string) (string, error) {
	full := filepath.Join(s.root, rel)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", apperror.NewValidation("invalid photo path").WithDetail("path", rel)
	}
	return full, nil
}
