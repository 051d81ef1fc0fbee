package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "farewatch/pkg/logx"
)

// fileStore appends JSON Lines to two files:
//   - <prefix>.runs.jsonl
//   - <prefix>.deliveries.jsonl
type fileStore struct {
	log logx.Logger

	mu         sync.Mutex
	runs       *os.File
	deliveries *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	prefix := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	rf, err := os.OpenFile(prefix+".runs.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	df, err := os.OpenFile(prefix+".deliveries.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		_ = rf.Close()
		return nil, err
	}
	log.Debug("file store opened", logx.String("prefix", prefix))
	return &fileStore{log: log, runs: rf, deliveries: df}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.runs != nil {
		errs = append(errs, s.runs.Close())
		s.runs = nil
	}
	if s.deliveries != nil {
		errs = append(errs, s.deliveries.Close())
		s.deliveries = nil
	}
	return errors.Join(errs...)
}

func (s *fileStore) AppendRun(_ context.Context, r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs == nil {
		return ErrDisabled
	}
	return json.NewEncoder(s.runs).Encode(r)
}

func (s *fileStore) AppendDelivery(_ context.Context, d DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveries == nil {
		return ErrDisabled
	}
	return json.NewEncoder(s.deliveries).Encode(d)
}
