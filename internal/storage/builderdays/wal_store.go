package builderdays

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/internal/domain"
)

const (
	DefaultDir     = "./wal/builderdays"
	segmentLimit   = 100
	maxSegments    = 50
	dirPermissions = 0o755

	dayKeyPrefix = "builder_day_"
)

// WALStore persists downloaded builder report days in a WAL so they survive restarts.
// The log is replayed into memory on open; later writes for the same day win.
type WALStore struct {
	wal  *gowal.Wal
	mu   sync.RWMutex
	days map[string][]byte
}

// NewWALStore opens (or creates) the store under dir.
func NewWALStore(dir string, l *zap.Logger) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if l == nil {
		l = zap.NewNop()
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure WAL directory %s", dir)
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "day_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init builder day WAL")
	}

	days := make(map[string][]byte)
	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, dayKeyPrefix) {
			continue
		}
		days[msg.Key] = msg.Value
	}
	l.Info("builder day store opened", zap.String("dir", dir), zap.Int("days", len(days)))

	return &WALStore{wal: wal, days: days}, nil
}

func storeKey(builder, date string) string {
	return fmt.Sprintf("%s%s_%s", dayKeyPrefix, strings.ToLower(builder), date)
}

// Load returns the stored rows of builder for date. ok is false when the day was never saved.
func (s *WALStore) Load(builder, date string) ([]domain.BuilderFill, bool, error) {
	if s == nil || s.wal == nil {
		return nil, false, errors.New("builder day store is not initialized")
	}

	s.mu.RLock()
	payload, ok := s.days[storeKey(builder, date)]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	var rows []domain.BuilderFill
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, false, errors.Wrap(err, "decode builder day")
	}
	if rows == nil {
		rows = []domain.BuilderFill{}
	}
	return rows, true, nil
}

// Save writes the rows of builder for date to the WAL.
func (s *WALStore) Save(builder, date string, rows []domain.BuilderFill) error {
	if s == nil || s.wal == nil {
		return errors.New("builder day store is not initialized")
	}
	if builder == "" || date == "" {
		return fmt.Errorf("builder and date are required")
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return errors.Wrap(err, "marshal builder day")
	}
	key := storeKey(builder, date)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return errors.Wrap(err, "write builder day")
	}
	s.days[key] = payload
	return nil
}

// Len returns the number of stored days.
func (s *WALStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.days)
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("builder day store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
