package ledger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/filelock"
	"github.com/aogosto/order-triage/pkg/logger"
)

const backupLayout = "20060102_150405"

// Legacy ledgers hold numeric order ids, one per line.
var legacyID = regexp.MustCompile(`^[0-9]+$`)

// FileStore keeps the ledger as a sorted JSON array of ids. Every load and
// save happens under an OS lock on "<path>.lock".
type FileStore struct {
	path  string
	logg  *logger.Logger
	clock func() time.Time
}

func NewFileStore(path string, logg *logger.Logger) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "ledger path required")
	}
	return &FileStore{path: path, logg: logg, clock: time.Now}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (Set, error) {
	lock, err := filelock.Acquire(s.path + ".lock")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock ledger")
	}
	defer lock.Release()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewSet(), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read ledger")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NewSet(), nil
	}

	set, err := decode(data)
	if err == nil {
		return set, nil
	}
	if err := s.recover(ctx, data, err); err != nil {
		return nil, err
	}
	return NewSet(), nil
}

func (s *FileStore) Save(ctx context.Context, set Set) error {
	lock, err := filelock.Acquire(s.path + ".lock")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock ledger")
	}
	defer lock.Release()

	data, err := json.MarshalIndent(set.Sorted(), "", "  ")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode ledger")
	}
	if err := writeAtomic(s.path, append(data, '\n')); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write ledger")
	}
	return nil
}

// recover backs up a corrupt ledger and resets it to an empty array.
func (s *FileStore) recover(ctx context.Context, data []byte, cause error) error {
	backup := s.path + ".backup_" + s.clock().Format(backupLayout)
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "back up corrupt ledger")
	}
	if err := writeAtomic(s.path, []byte("[]\n")); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset corrupt ledger")
	}
	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{"path": s.path, "backup": backup})
		s.logg.Error(lctx, "ledger.corrupt_backup", pkgerrors.Wrap(pkgerrors.CodeCorrupt, cause, "ledger unreadable"))
	}
	return nil
}

// decode accepts the JSON array format and the legacy one-id-per-line file.
func decode(data []byte) (Set, error) {
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] == '[' {
		var ids []any
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return nil, err
		}
		set := NewSet()
		for _, raw := range ids {
			switch v := raw.(type) {
			case string:
				set.Add(v)
			case float64:
				set.Add(fmt.Sprintf("%.0f", v))
			default:
				return nil, fmt.Errorf("unexpected ledger entry %v", raw)
			}
		}
		return set, nil
	}
	set := NewSet()
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !legacyID.MatchString(line) {
			return nil, fmt.Errorf("ledger is neither a json array nor a line list")
		}
		set.Add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
