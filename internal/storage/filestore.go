package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// FileRecordStore keeps delivery records as JSON files under a base
// directory, one file per pull request. It serves CLI and single-node runs
// where a database is overkill; writes go through a temp file and rename so a
// crash never leaves a half-written record.
type FileRecordStore struct {
	baseDir string
}

// NewFileRecordStore returns a store rooted at baseDir, typically the
// .tribunal artifact directory.
func NewFileRecordStore(baseDir string) *FileRecordStore {
	return &FileRecordStore{baseDir: baseDir}
}

func (s *FileRecordStore) path(repoFull string, prNumber int) string {
	// acme/widgets -> acme__widgets so the record lands in one directory
	flat := strings.ReplaceAll(repoFull, "/", "__")
	return filepath.Join(s.baseDir, fmt.Sprintf("delivery-%s-pr%d.json", flat, prNumber))
}

// Load reads the record for a pull request, returning an empty record when
// none exists yet.
func (s *FileRecordStore) Load(_ context.Context, repoFull string, prNumber int) (*core.DeliveryRecord, error) {
	data, err := os.ReadFile(s.path(repoFull, prNumber))
	if errors.Is(err, fs.ErrNotExist) {
		return core.NewDeliveryRecord(repoFull, prNumber), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading delivery record: %w", err)
	}

	var rec core.DeliveryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("corrupt delivery record for PR %s#%d: %w", repoFull, prNumber, err)
	}
	if rec.Entries == nil {
		rec.Entries = make(map[string]core.DeliveryEntry)
	}
	return &rec, nil
}

// Save writes the record atomically.
func (s *FileRecordStore) Save(_ context.Context, rec *core.DeliveryRecord) error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("creating record directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	target := s.path(rec.RepoFull, rec.PRNumber)
	tmp, err := os.CreateTemp(s.baseDir, ".delivery-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp record file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing delivery record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing delivery record: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing delivery record: %w", err)
	}
	return nil
}
