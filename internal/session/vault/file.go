package vault

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oculab/glaucoma-dashboard/internal/util/atomicwrite"
)

// fileStore persists one JSON document per session under dir.
// Writes are atomic so a crash never leaves a torn record.
type fileStore struct {
	dir string
}

// NewFile creates a file-backed store rooted at dir.
func NewFile(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("vault: mkdir %s: %w", dir, err)
	}
	return &fileStore{dir: dir}, nil
}

// path hex-encodes the sid so arbitrary identifiers cannot escape dir.
func (s *fileStore) path(sid string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(sid))+".json")
}

func (s *fileStore) Load(_ context.Context, sid string) (*Record, error) {
	b, err := os.ReadFile(s.path(sid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("vault: read %s: %w", sid, err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("vault: decode %s: %w", sid, err)
	}
	return &rec, nil
}

func (s *fileStore) Save(_ context.Context, rec *Record) error {
	cp := *rec
	cp.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("vault: encode %s: %w", rec.SID, err)
	}
	return atomicwrite.AtomicWriteFile(s.path(rec.SID), b, 0o600)
}

func (s *fileStore) Delete(_ context.Context, sid string) error {
	if err := os.Remove(s.path(sid)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("vault: remove %s: %w", sid, err)
	}
	return nil
}
