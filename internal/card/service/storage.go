package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid path segment")

// ============================================================
// File Storage
// ============================================================

// FileStorage хранит PNG-превью дизайнов: {root}/{userID}/previews/{docID}.png.
type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) UserDir(userID string) string {
	return filepath.Join(s.root, userID)
}

func (s *FileStorage) PreviewsDir(userID string) string {
	return filepath.Join(s.UserDir(userID), "previews")
}

func (s *FileStorage) PreviewPath(userID, docID string) (string, error) {
	if err := checkSegment(userID); err != nil {
		return "", err
	}
	if err := checkSegment(docID); err != nil {
		return "", err
	}
	return filepath.Join(s.PreviewsDir(userID), docID+".png"), nil
}

func (s *FileStorage) EnsurePreviewsDir(userID string) error {
	if err := os.MkdirAll(s.PreviewsDir(userID), 0o755); err != nil {
		return fmt.Errorf("mkdir previews dir: %w", err)
	}
	return nil
}

// SavePreview пишет PNG и возвращает путь к файлу.
func (s *FileStorage) SavePreview(userID, docID string, data []byte) (string, error) {
	target, err := s.PreviewPath(userID, docID)
	if err != nil {
		return "", err
	}
	if err := s.EnsurePreviewsDir(userID); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write preview: %w", err)
	}
	return target, nil
}

// RemovePreview удаляет превью; отсутствие файла не ошибка.
func (s *FileStorage) RemovePreview(userID, docID string) error {
	target, err := s.PreviewPath(userID, docID)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove preview: %w", err)
	}
	return nil
}

func checkSegment(v string) error {
	if v == "" || v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, v)
	}
	return nil
}
