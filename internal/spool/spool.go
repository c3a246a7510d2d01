// Package spool keeps orders that could not be written to the store in a
// local JSON-lines file until they can be replayed.
package spool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/fasogadget/internal/models"
	"go.uber.org/zap"
)

// CorruptSuffix is appended to the spool path to name the file holding
// lines that could not be decoded.
const CorruptSuffix = ".corrupt"

// Spool is an append-only file of orders. It is safe for concurrent use.
type Spool struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// Option customises a Spool.
type Option func(*Spool)

// WithLogger sets the logger reporting undecodable lines.
func WithLogger(log *zap.Logger) Option {
	return func(s *Spool) {
		if log != nil {
			s.log = log
		}
	}
}

// New returns a Spool stored at path. The file is created on first Append.
func New(path string, opts ...Option) *Spool {
	s := &Spool{path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the spool file location.
func (s *Spool) Path() string { return s.path }

// CorruptPath returns the file undecodable lines are moved to.
func (s *Spool) CorruptPath() string { return s.path + CorruptSuffix }

// Append writes order as one line and syncs the file. A torn last line left
// by an interrupted write is terminated first so the new order stays
// decodable.
func (s *Spool) Append(order models.Order) error {
	line, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create spool dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}
	torn, err := endsMidLine(f)
	if err != nil {
		f.Close()
		return err
	}
	if torn {
		line = append([]byte{'\n'}, line...)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append spool: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync spool: %w", err)
	}
	return f.Close()
}

func endsMidLine(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat spool: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, fmt.Errorf("read spool tail: %w", err)
	}
	return last[0] != '\n', nil
}

// Len returns the number of decodable spooled orders.
func (s *Spool) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, _, err := s.read()
	return len(orders), err
}

// Drain hands every spooled order to fn in file order. Orders fn accepted
// are removed, the others are kept for the next attempt. Drain stops at the
// first error from fn and returns how many orders were accepted.
//
// Lines that cannot be decoded are moved to CorruptPath and never block the
// orders around them.
func (s *Spool) Drain(ctx context.Context, fn func(context.Context, models.Order) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, bad, err := s.read()
	if err != nil {
		return 0, err
	}
	if len(bad) > 0 {
		if err := s.quarantine(bad); err != nil {
			return 0, err
		}
	}
	if len(orders) == 0 {
		if len(bad) > 0 {
			return 0, s.rewrite(nil)
		}
		return 0, nil
	}

	done := 0
	var fnErr error
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			fnErr = err
			break
		}
		if err := fn(ctx, o); err != nil {
			fnErr = err
			break
		}
		done++
	}
	if done == 0 && len(bad) == 0 {
		return 0, fnErr
	}

	if err := s.rewrite(orders[done:]); err != nil {
		return done, errors.Join(fnErr, err)
	}
	return done, fnErr
}

// read decodes the spool. Undecodable lines are returned separately.
func (s *Spool) read() ([]models.Order, [][]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read spool: %w", err)
	}

	var (
		orders []models.Order
		bad    [][]byte
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var o models.Order
		if err := json.Unmarshal(line, &o); err != nil {
			bad = append(bad, append([]byte{}, line...))
			continue
		}
		orders = append(orders, o)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan spool: %w", err)
	}
	return orders, bad, nil
}

// quarantine appends lines to the corrupt sidecar file.
func (s *Spool) quarantine(lines [][]byte) error {
	f, err := os.OpenFile(s.CorruptPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open corrupt spool: %w", err)
	}
	for _, l := range lines {
		if _, err := f.Write(append(l, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("write corrupt spool: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync corrupt spool: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.log.Warn("moved undecodable spool lines aside",
		zap.Int("count", len(lines)),
		zap.String("file", s.CorruptPath()))
	return nil
}

// rewrite replaces the spool with orders through a temp file rename.
func (s *Spool) rewrite(orders []models.Order) error {
	if len(orders) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove spool: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, o := range orders {
		if err := enc.Encode(o); err != nil {
			return fmt.Errorf("encode order: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write spool: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace spool: %w", err)
	}
	return nil
}
