package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledger/internal/models"
)

const maxLineBytes = 1 << 20

// journal is an append-only JSON lines file. Each append is synced before it
// returns; a failed append is truncated away so the file only ever ends in a
// complete line.
type journal struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func openJournal(path string) (*journal, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	j := &journal{path: path, file: file}
	if _, err := j.end(); err != nil {
		file.Close()
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return j, nil
}

func (j *journal) append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return os.ErrClosed
	}
	size, err := j.end()
	if err != nil {
		return err
	}
	if _, err := j.file.Write(line); err != nil {
		return errors.Join(err, j.file.Truncate(size))
	}
	if err := j.file.Sync(); err != nil {
		return errors.Join(err, j.file.Truncate(size))
	}
	return nil
}

// end returns the offset just past the last complete line, cutting off a
// trailing partial line left by an interrupted write.
func (j *journal) end() (int64, error) {
	info, err := j.file.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()
	buf := make([]byte, 4096)
	for pos := size; pos > 0; {
		n := int64(len(buf))
		if pos < n {
			n = pos
		}
		pos -= n
		if _, err := j.file.ReadAt(buf[:n], pos); err != nil {
			return 0, err
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			return j.truncateTail(size, pos+int64(i)+1)
		}
	}
	return j.truncateTail(size, 0)
}

func (j *journal) truncateTail(size, keep int64) (int64, error) {
	if keep == size {
		return size, nil
	}
	log.Printf("filestore: dropping %d byte partial line at end of %s", size-keep, filepath.Base(j.path))
	if err := j.file.Truncate(keep); err != nil {
		return 0, err
	}
	return keep, j.file.Sync()
}

// each decodes every line in file order and stops at the first error.
func (j *journal) each(fn func(line []byte) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	file, err := os.Open(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(j.path), lineNo, err)
		}
	}
	return scanner.Err()
}

func (j *journal) close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

type TransactionLog struct {
	*journal
}

func openTransactionLog(path string) (*TransactionLog, error) {
	j, err := openJournal(path)
	if err != nil {
		return nil, err
	}
	return &TransactionLog{journal: j}, nil
}

func (l *TransactionLog) Append(_ context.Context, record models.Transaction) error {
	return l.append(record)
}

func (l *TransactionLog) List(_ context.Context) ([]models.Transaction, error) {
	return l.filter(func(models.Transaction) bool { return true })
}

func (l *TransactionLog) ListFor(_ context.Context, username string) ([]models.Transaction, error) {
	return l.filter(func(t models.Transaction) bool { return t.Involves(username) })
}

func (l *TransactionLog) filter(keep func(models.Transaction) bool) ([]models.Transaction, error) {
	records := []models.Transaction{}
	err := l.each(func(line []byte) error {
		var record models.Transaction
		if err := json.Unmarshal(line, &record); err != nil {
			return err
		}
		if keep(record) {
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

type AuditLog struct {
	*journal
}

func openAuditLog(path string) (*AuditLog, error) {
	j, err := openJournal(path)
	if err != nil {
		return nil, err
	}
	return &AuditLog{journal: j}, nil
}

func (l *AuditLog) Log(_ context.Context, actor, action, entity, data string) error {
	if data == "" {
		data = "{}"
	}
	return l.append(models.AuditEntry{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Entity:    entity,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
}

// List returns entries newest first.
func (l *AuditLog) List(_ context.Context, limit, offset int) ([]models.AuditEntry, error) {
	var all []models.AuditEntry
	err := l.each(func(line []byte) error {
		var entry models.AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return err
		}
		all = append(all, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	entries := []models.AuditEntry{}
	for i := len(all) - 1 - offset; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, all[i])
	}
	return entries, nil
}
