package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge   = errors.New("photo file too large")
	ErrDisallowedType = errors.New("photo must be an image")
	ErrExecutableFile = errors.New("executable files are not allowed")
	ErrInvalidPath    = errors.New("invalid blob path")
)

type StoredPhoto struct {
	StoragePath string
	MimeType    string
	SizeBytes   int64
	Width       int
	Height      int
	CreatedAt   time.Time
}

// Service stores user profile photos under a root directory.
type Service struct {
	rootDir        string
	maxUploadBytes int64
}

func NewService(rootDir string, maxUploadBytes int64) (*Service, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, fmt.Errorf("blob root directory is required")
	}
	if maxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be > 0")
	}

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root directory: %w", err)
	}

	return &Service{
		rootDir:        rootDir,
		maxUploadBytes: maxUploadBytes,
	}, nil
}

func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// SavePhoto validates an upload as an image no larger than the configured
// limit, normalizes it and writes it under photos/. The returned StoragePath
// is relative to the root.
func (s *Service) SavePhoto(_ context.Context, userID int64, src io.Reader, now time.Time) (*StoredPhoto, error) {
	raw, err := io.ReadAll(io.LimitReader(src, s.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo data: %w", err)
	}
	if int64(len(raw)) > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}

	sniff := raw
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	if isExecutableSignature(sniff) {
		return nil, ErrExecutableFile
	}
	if !isAllowedMimeType(detectMimeType(sniff)) {
		return nil, ErrDisallowedType
	}

	normalized, err := NormalizePhoto(bytes.NewReader(raw), DefaultPhotoMaxEdge, DefaultPhotoQuality)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			return nil, ErrDisallowedType
		}
		return nil, err
	}

	relPath := photoRelativePath(userID, uuid.NewString(), normalized.MimeType)
	written, err := s.Write(relPath, bytes.NewReader(normalized.Data))
	if err != nil {
		return nil, err
	}

	return &StoredPhoto{
		StoragePath: relPath,
		MimeType:    normalized.MimeType,
		SizeBytes:   written,
		Width:       normalized.Width,
		Height:      normalized.Height,
		CreatedAt:   now,
	}, nil
}

func (s *Service) Open(storagePath string) (*os.File, error) {
	absPath, err := s.resolveStoragePath(storagePath)
	if err != nil {
		return nil, err
	}
	return os.Open(absPath)
}

func (s *Service) Write(storagePath string, src io.Reader) (int64, error) {
	absPath, err := s.resolveStoragePath(storagePath)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating blob directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(absPath), "blob-write-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temporary blob file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	written, err := io.Copy(tmpFile, src)
	if err != nil {
		return 0, fmt.Errorf("writing blob file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("closing temporary blob file: %w", err)
	}

	if err := os.Rename(tmpPath, absPath); err != nil {
		return 0, fmt.Errorf("finalizing blob file: %w", err)
	}

	return written, nil
}

func (s *Service) Delete(storagePath string) error {
	absPath, err := s.resolveStoragePath(storagePath)
	if err != nil {
		return err
	}

	err = os.Remove(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting blob file: %w", err)
	}

	return nil
}

func (s *Service) resolveStoragePath(storagePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(storagePath))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", ErrInvalidPath
	}

	return filepath.Join(s.rootDir, clean), nil
}

func photoRelativePath(userID int64, name, mimeType string) string {
	ext := ".jpg"
	if mimeType == "image/png" {
		ext = ".png"
	}
	return filepath.ToSlash(filepath.Join("photos", fmt.Sprintf("%02d", userID%100), fmt.Sprintf("%d-%s%s", userID, name, ext)))
}

// MimeTypeForPath maps a stored photo path back to its content type.
func MimeTypeForPath(storagePath string) string {
	if strings.HasSuffix(storagePath, ".png") {
		return "image/png"
	}
	return "image/jpeg"
}

func detectMimeType(sniff []byte) string {
	if len(sniff) == 0 {
		return "application/octet-stream"
	}

	return trimMimeParams(http.DetectContentType(sniff))
}

func isExecutableSignature(sniff []byte) bool {
	if len(sniff) < 2 {
		return false
	}

	if sniff[0] == 'M' && sniff[1] == 'Z' {
		return true // PE/COFF (Windows)
	}
	if len(sniff) >= 4 && bytes.Equal(sniff[:4], []byte{0x7f, 'E', 'L', 'F'}) {
		return true
	}
	if sniff[0] == '#' && sniff[1] == '!' {
		return true // shebang scripts
	}

	return false
}

func trimMimeParams(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}

// SVG can carry script, so it is refused even though it is image/*.
func isAllowedMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "image/svg+xml" {
		return false
	}
	return strings.HasPrefix(mimeType, "image/")
}
