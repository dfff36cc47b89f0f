package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/deal-scout/internal/model"
)

// FileStore persists the ledger as a JSON list on disk. Writes go to a temp
// file in the same directory followed by a rename, so a crash mid-save leaves
// the previous state readable.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a file-backed store at the given path. The file is created
// on first Save.
func NewFile(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) ([]model.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []model.Opportunity{}, nil
	}
	if err != nil {
		return []model.Opportunity{}, eris.Wrapf(ErrCorruptState, "read %s: %v", s.path, err)
	}

	var opportunities []model.Opportunity
	if err := json.Unmarshal(data, &opportunities); err != nil {
		zap.L().Warn("memory: discarding unreadable state file",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return []model.Opportunity{}, eris.Wrapf(ErrCorruptState, "decode %s: %v", s.path, err)
	}
	return opportunities, nil
}

func (s *FileStore) Save(ctx context.Context, opportunities []model.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkUnique(opportunities); err != nil {
		return eris.Wrap(ErrPersistence, err.Error())
	}

	data, err := json.MarshalIndent(opportunities, "", "  ")
	if err != nil {
		return eris.Wrapf(ErrPersistence, "encode: %v", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return eris.Wrapf(ErrPersistence, "create temp in %s: %v", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrapf(ErrPersistence, "write temp: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(ErrPersistence, "close temp: %v", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(ErrPersistence, "rename to %s: %v", s.path, err)
	}
	return nil
}

func (s *FileStore) Reset(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	opportunities, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if keep < len(opportunities) {
		opportunities = opportunities[:keep]
	}
	return s.Save(ctx, opportunities)
}

func (s *FileStore) Close() error {
	return nil
}
