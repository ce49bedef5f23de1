package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/relist-market/backend/internal/util"
)

// LocalStore writes images to a directory on disk, served under /media/.
// Used in development when no S3 bucket is configured.
type LocalStore struct {
	root string
}

// NewLocalStore creates the media directory if needed
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = "media"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) UploadImage(ctx context.Context, imageData []byte, userID, originalFilename string) (*UploadResult, error) {
	if !util.IsValidImageFile(originalFilename) {
		return nil, fmt.Errorf("unsupported image type: %s", filepath.Ext(originalFilename))
	}

	extension := strings.ToLower(filepath.Ext(originalFilename))
	now := time.Now()
	key := fmt.Sprintf("items/%d/%02d/%s/%s%s",
		now.Year(), now.Month(), userID, uuid.New().String(), extension)

	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(path, imageData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	return &UploadResult{
		Key:  key,
		URL:  "/media/" + key,
		Size: int64(len(imageData)),
	}, nil
}

func (s *LocalStore) DeleteImage(ctx context.Context, key string) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
