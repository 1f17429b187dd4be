// Package redis keeps every partition in a redis list of JSON encoded
// records, plus a set naming all partitions. Appends WATCH the list
// and write in a MULTI/EXEC block so that competing writers (in this
// or other processes) can't interleave.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/framework/storage"
)

const DefaultPrefix = "retro:"

type Error struct {
	Op  string
	Err error
}

func (e Error) Error() string {
	return fmt.Sprintf("redisstore: op: %q err: %q", e.Op, e.Err)
}

type Store struct {
	client *redis.Client
	prefix string
}

// NewStore connects to the redis server at addr and pings it.
func NewStore(addr, prefix string) (*Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, Error{"ping", err}
	}
	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) partitionKey(partition retro.PartitionName) string {
	return s.prefix + "partition:" + partition.String()
}

func (s *Store) indexKey() string {
	return s.prefix + "partitions"
}

func (s *Store) Append(ctx context.Context, partition retro.PartitionName, expected int, recs ...storage.Record) error {
	if err := storage.CheckAppend(partition, expected, recs); err != nil {
		return err
	}

	var values = make([]interface{}, len(recs))
	for i, rec := range recs {
		b, err := json.Marshal(rec)
		if err != nil {
			return Error{"marshal", err}
		}
		values[i] = b
	}

	var (
		client = s.client.WithContext(ctx)
		key    = s.partitionKey(partition)
	)

	err := client.Watch(func(tx *redis.Tx) error {
		n, err := tx.LLen(key).Result()
		if err != nil {
			return Error{"llen", err}
		}
		if int(n) != expected {
			return storage.ErrConcurrentWrite
		}
		if len(values) == 0 {
			return nil
		}
		_, err = tx.Pipelined(func(pipe redis.Pipeliner) error {
			pipe.RPush(key, values...)
			pipe.SAdd(s.indexKey(), partition.String())
			return nil
		})
		return err
	}, key)

	switch {
	case err == redis.TxFailedErr:
		return storage.ErrConcurrentWrite
	case err == storage.ErrConcurrentWrite:
		return err
	case err != nil:
		if _, ok := err.(Error); ok {
			return err
		}
		return Error{"exec", err}
	}
	return nil
}

func (s *Store) Load(ctx context.Context, partition retro.PartitionName) ([]storage.Record, error) {
	values, err := s.client.WithContext(ctx).LRange(s.partitionKey(partition), 0, -1).Result()
	if err != nil {
		return nil, Error{"lrange", err}
	}
	var recs []storage.Record
	for i, v := range values {
		var rec storage.Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, Error{"unmarshal", errors.Wrapf(err, "%s[%d]", partition, i)}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *Store) Partitions(ctx context.Context) ([]retro.PartitionName, error) {
	members, err := s.client.WithContext(ctx).SMembers(s.indexKey()).Result()
	if err != nil {
		return nil, Error{"smembers", err}
	}
	sort.Strings(members)
	var names = make([]retro.PartitionName, len(members))
	for i, m := range members {
		names[i] = retro.PartitionName(m)
	}
	return names, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
