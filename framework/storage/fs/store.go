// Package fs keeps every partition in a JSON lines file below a base
// directory, e.g <base>/lottery/123.jsonl. One store must own a base
// directory, writes are serialized within the process only.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/framework/storage"
	"golang.org/x/xerrors"
)

const fileExt = ".jsonl"

var (
	ErrUnableToCreateBaseDir      = xerrors.New("fs: unable to create base dir")
	ErrUnableToCreatePartitionDir = xerrors.New("fs: unable to create partition dir")
	ErrUnableToReadPartition      = xerrors.New("fs: unable to read partition file")
	ErrUnableToWritePartition     = xerrors.New("fs: unable to write partition file")
	ErrCorruptRecord              = xerrors.New("fs: corrupt record")
)

type Store struct {
	mu       sync.Mutex
	BasePath string
}

// NewStore ensures basePath exists.
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Wrap(ErrUnableToCreateBaseDir, err.Error())
	}
	return &Store{BasePath: basePath}, nil
}

func (s *Store) path(partition retro.PartitionName) string {
	return filepath.Join(s.BasePath, url.PathEscape(partition.Dirname()), url.PathEscape(partition.ID())+fileExt)
}

func (s *Store) Append(ctx context.Context, partition retro.PartitionName, expected int, recs ...storage.Record) error {
	if err := storage.CheckAppend(partition, expected, recs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var path = s.path(partition)

	existing, valid, err := s.read(path)
	if err != nil {
		return err
	}
	if len(existing) != expected {
		return storage.ErrConcurrentWrite
	}
	if len(recs) == 0 {
		return nil
	}

	var b bytes.Buffer
	for _, rec := range recs {
		line, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(ErrUnableToWritePartition, err.Error())
		}
		b.Write(line)
		b.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(ErrUnableToCreatePartitionDir, err.Error())
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(ErrUnableToWritePartition, err.Error())
	}
	defer f.Close()

	// A torn write from an earlier crash is cut off before appending.
	if err := f.Truncate(valid); err != nil {
		return errors.Wrap(ErrUnableToWritePartition, err.Error())
	}
	if _, err := f.WriteAt(b.Bytes(), valid); err != nil {
		return errors.Wrap(ErrUnableToWritePartition, err.Error())
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(ErrUnableToWritePartition, err.Error())
	}
	return nil
}

func (s *Store) Load(ctx context.Context, partition retro.PartitionName) ([]storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, _, err := s.read(s.path(partition))
	return recs, err
}

// read returns the records of a partition file and the length of the
// file up to the last complete line.
func (s *Store) read(path string) ([]storage.Record, int64, error) {
	content, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, errors.Wrap(ErrUnableToReadPartition, err.Error())
	}

	var (
		recs  []storage.Record
		valid = int64(bytes.LastIndexByte(content, '\n') + 1)
	)
	for _, line := range bytes.Split(content[:valid], []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec storage.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, 0, errors.Wrapf(ErrCorruptRecord, "%s: %s", path, err)
		}
		recs = append(recs, rec)
	}
	return recs, valid, nil
}

func (s *Store) Partitions(ctx context.Context) ([]retro.PartitionName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(s.BasePath, "*", "*"+fileExt))
	if err != nil {
		return nil, errors.Wrap(ErrUnableToReadPartition, err.Error())
	}

	var names []retro.PartitionName
	for _, file := range files {
		recs, _, err := s.read(file)
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			continue
		}
		names = append(names, recs[0].Partition)
	}
	sort.Slice(names, func(i, j int) bool { return strings.Compare(string(names[i]), string(names[j])) < 0 })
	return names, nil
}

func (s *Store) Close() error { return nil }
