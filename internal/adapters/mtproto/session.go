package mtproto

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gotd/td/session"
)

// SessionRepo — хранилище сессий в БД.
type SessionRepo interface {
	LoadMTProtoSession(ctx context.Context, name string) ([]byte, error)
	StoreMTProtoSession(ctx context.Context, name string, data []byte) error
}

// SessionDB хранит сессию gotd в Postgres под именем name.
type SessionDB struct {
	repo SessionRepo
	name string
}

var _ session.Storage = (*SessionDB)(nil)

// NewSessionDB создаёт хранилище сессии в БД.
func NewSessionDB(repo SessionRepo, name string) *SessionDB {
	return &SessionDB{repo: repo, name: name}
}

// LoadSession загружает сессию. Сохранённые в старых форматах данные приводятся к формату gotd.
func (s *SessionDB) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := s.repo.LoadMTProtoSession(ctx, s.name)
	if err != nil {
		return nil, err
	}
	normalized, _, err := NormalizeSessionBytes(data)
	if err != nil {
		return nil, fmt.Errorf("session %q: %w", s.name, err)
	}
	return normalized, nil
}

// StoreSession сохраняет сессию.
func (s *SessionDB) StoreSession(ctx context.Context, data []byte) error {
	return s.repo.StoreMTProtoSession(ctx, s.name, data)
}

// SessionFile хранит сессию в JSON-файле и понимает файлы, созданные другими клиентами.
type SessionFile struct {
	file session.FileStorage
}

var _ session.Storage = (*SessionFile)(nil)

// NewSessionFile создаёт файловое хранилище сессии.
func NewSessionFile(path string) *SessionFile {
	return &SessionFile{file: session.FileStorage{Path: path}}
}

// LoadSession читает файл. Без файла возвращается session.ErrNotFound.
func (s *SessionFile) LoadSession(ctx context.Context) ([]byte, error) {
	raw, err := os.ReadFile(s.file.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	normalized, converted, err := NormalizeSessionBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("session file %s: %w", s.file.Path, err)
	}
	if converted {
		if err := s.file.StoreSession(ctx, normalized); err != nil {
			return nil, err
		}
	}
	return normalized, nil
}

// StoreSession записывает файл.
func (s *SessionFile) StoreSession(ctx context.Context, data []byte) error {
	return s.file.StoreSession(ctx, data)
}
