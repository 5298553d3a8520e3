// Package email delivers verification and password reset links.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"ideias/internal/models"
)

// FileMailer stands in for real delivery: each link overwrites
// <dir>/verification_<uid>.txt or <dir>/reset_<uid>.txt.
type FileMailer struct {
	dir string
}

func NewFileMailer(dir string) (*FileMailer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating mail directory: %w", err)
	}
	return &FileMailer{dir: dir}, nil
}

func (m *FileMailer) SendVerification(_ context.Context, user *models.User, link string) error {
	return m.write("verification", user.ID, link)
}

func (m *FileMailer) SendPasswordReset(_ context.Context, user *models.User, link string) error {
	return m.write("reset", user.ID, link)
}

// Path returns where the latest link of kind ("verification" or "reset") for userID is kept.
func (m *FileMailer) Path(kind string, userID int64) string {
	return filepath.Join(m.dir, kind+"_"+strconv.FormatInt(userID, 10)+".txt")
}

func (m *FileMailer) write(kind string, userID int64, link string) error {
	path := m.Path(kind, userID)
	if err := os.WriteFile(path, []byte(link), 0o600); err != nil {
		return fmt.Errorf("writing %s link: %w", kind, err)
	}
	slog.Info("wrote mail link", "component", "email", "kind", kind, "user_id", userID, "path", path)
	return nil
}
