package store

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var ErrLedgerClosed = errors.New("ledger is closed")

// SeedLedger records which autoplay seeds have already been archived.
// It is backed by an append-only file with one decimal seed per line.
//
// The whole file is loaded on open. Unparseable lines (for example a partial
// line left by a crash mid-write) are skipped.
type SeedLedger struct {
	mu     sync.RWMutex
	path   string
	file   *os.File
	played map[int64]struct{}
}

func OpenSeedLedger(path string) (*SeedLedger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path is required")
	}

	played := make(map[int64]struct{})
	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			seed, err := strconv.ParseInt(strings.TrimSpace(scanner.Text()), 10, 64)
			if err != nil {
				continue
			}
			played[seed] = struct{}{}
		}
		_ = f.Close()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	return &SeedLedger{path: path, file: file, played: played}, nil
}

func (l *SeedLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *SeedLedger) Has(seed int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.played[seed]
	return ok
}

func (l *SeedLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.played)
}

// AddMany appends the seeds not already present and syncs once.
func (l *SeedLedger) AddMany(seeds []int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return ErrLedgerClosed
	}

	var b strings.Builder
	fresh := make([]int64, 0, len(seeds))
	seen := make(map[int64]struct{}, len(seeds))
	for _, seed := range seeds {
		if _, ok := l.played[seed]; ok {
			continue
		}
		if _, ok := seen[seed]; ok {
			continue
		}
		seen[seed] = struct{}{}
		b.WriteString(strconv.FormatInt(seed, 10))
		b.WriteByte('\n')
		fresh = append(fresh, seed)
	}
	if len(fresh) == 0 {
		return nil
	}

	if _, err := l.file.WriteString(b.String()); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	for _, seed := range fresh {
		l.played[seed] = struct{}{}
	}
	return nil
}

func (l *SeedLedger) Add(seed int64) error {
	return l.AddMany([]int64{seed})
}
