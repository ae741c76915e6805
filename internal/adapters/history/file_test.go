package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tg-reviewer/internal/domain"
)

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "history.json"))
	refs, err := store.Load(context.Background())
	if err != nil || len(refs) != 0 {
		t.Fatalf("ожидали пустую историю, получили %v (%v)", refs, err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	store := NewFileStore(path)
	refs := []domain.ConversationRef{
		{ID: 1234567890, Name: "Go 討論群", Type: domain.ConversationGroup},
		{ID: 42, Name: "news", Type: domain.ConversationChannel},
	}
	if err := store.Save(context.Background(), refs); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(raw)
	if !strings.Contains(text, `"name": "Go 討論群"`) || !strings.Contains(text, `"type": "頻道"`) {
		t.Fatalf("ожидали JSON с отступами и без экранирования:\n%s", text)
	}
	if !strings.HasPrefix(text, "[\n  {") {
		t.Fatalf("ожидали отступ в два пробела:\n%s", text)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0] != refs[0] || got[1] != refs[1] {
		t.Fatalf("неожиданная история: %+v", got)
	}
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatal("ожидали ошибку разбора")
	}
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	refs, err := NewFileStore(path).Load(context.Background())
	if err != nil || refs != nil {
		t.Fatalf("пустой файл должен читаться как пустая история: %v %v", refs, err)
	}
}
