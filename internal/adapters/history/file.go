package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tg-reviewer/internal/domain"
)

// FileStore хранит историю выбранных бесед в JSON-файле.
type FileStore struct {
	path string
}

var _ domain.HistoryStore = (*FileStore)(nil)

// NewFileStore создаёт файловое хранилище истории.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load читает историю. Отсутствующий или пустой файл даёт пустую историю.
func (s *FileStore) Load(_ context.Context) ([]domain.ConversationRef, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return decode(raw)
}

// Save перезаписывает файл целиком.
func (s *FileStore) Save(_ context.Context, refs []domain.ConversationRef) error {
	payload, err := encode(refs)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func decode(raw []byte) ([]domain.ConversationRef, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var refs []domain.ConversationRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return refs, nil
}

func encode(refs []domain.ConversationRef) ([]byte, error) {
	if refs == nil {
		refs = []domain.ConversationRef{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(refs); err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return buf.Bytes(), nil
}
