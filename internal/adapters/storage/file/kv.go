package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"medipal/internal/platform/logger"
	"medipal/internal/ports/kv"
)

const defaultSaveDelay = 200 * time.Millisecond

// KV guarda todas las keys en un único documento JSON (key -> valor JSON).
// Las escrituras se agrupan con un worker (debounce) y se hace flush síncrono en Close.
type KV struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage

	path      string
	saveDelay time.Duration
	saveChan  chan struct{}
	shutdown  chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	log logger.Logger
}

type Options struct {
	// SaveDelay es la ventana de debounce; <=0 usa el default.
	SaveDelay time.Duration
}

func Open(path string, log logger.Logger, opts Options) (*KV, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("file kv: path required")
	}
	if log == nil {
		log = logger.Nop()
	}
	delay := opts.SaveDelay
	if delay <= 0 {
		delay = defaultSaveDelay
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file kv: mkdir: %w", err)
	}

	s := &KV{
		data:      make(map[string]json.RawMessage),
		path:      path,
		saveDelay: delay,
		saveChan:  make(chan struct{}, 1),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		log:       log.With(map[string]any{"component": "file_kv", "path": path}),
	}

	if err := s.load(); err != nil {
		s.log.Error("failed to load store", map[string]any{"err": err})
		return nil, err
	}

	go s.saveWorker()
	return s, nil
}

func (s *KV) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var data map[string]json.RawMessage
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("file kv: decode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range data {
		s.data[k] = v
	}
	return nil
}

func (s *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := checkValue(key, value); err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = append(json.RawMessage(nil), value...)
	s.mu.Unlock()

	s.scheduleSave()
	return nil
}

func (s *KV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	_, existed := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()

	if existed {
		s.scheduleSave()
	}
	return nil
}

func (s *KV) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	s.mu.Lock()
	cur, ok := s.data[key]
	next, err := fn(append([]byte(nil), cur...), ok)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, kv.ErrNoChange) {
			return nil
		}
		return err
	}
	if err := checkValue(key, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.data[key] = append(json.RawMessage(nil), next...)
	s.mu.Unlock()

	s.scheduleSave()
	return nil
}

func checkValue(key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("file kv: key required")
	}
	if !json.Valid(value) {
		return fmt.Errorf("file kv: value for %s is not valid json", key)
	}
	return nil
}

func (s *KV) scheduleSave() {
	select {
	case s.saveChan <- struct{}{}:
	default:
	}
}

func (s *KV) saveWorker() {
	defer close(s.done)

	timer := time.NewTimer(s.saveDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-s.saveChan:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if err := s.Flush(); err != nil {
				s.log.Error("error saving store", map[string]any{"err": err})
			}
		case <-s.shutdown:
			return
		}
	}
}

// Flush escribe el snapshot actual a disco (temp file + rename).
func (s *KV) Flush() error {
	s.mu.RLock()
	snapshot := make(map[string]json.RawMessage, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	return atomicWriteFileJSON(s.path, snapshot)
}

// Close detiene el worker y guarda lo pendiente de forma síncrona.
func (s *KV) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.shutdown)
		<-s.done
		err = s.Flush()
	})
	return err
}

func atomicWriteFileJSON(filePath string, data any) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

var _ kv.Store = (*KV)(nil)
