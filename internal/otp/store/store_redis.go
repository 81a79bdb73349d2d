package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tripmate/internal/otp/models"
	"tripmate/pkg/platform/sentinel"
)

const (
	keyPrefix    = "otp:"
	maxTxRetries = 5
)

// RedisStore keeps one JSON record per phone under "otp:<phone>". Atomic
// updates use WATCH/MULTI so concurrent verifications of one phone cannot both
// consume the code. Keys expire after retention, which is longer than the
// code TTL, so a late verification still finds the record and reports Expired.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedis(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func key(phone string) string { return keyPrefix + phone }

func (s *RedisStore) Put(ctx context.Context, rec models.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	if err := s.client.Set(ctx, key(rec.Phone), data, s.retention).Err(); err != nil {
		return fmt.Errorf("store otp record: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, phone string) (*models.Record, error) {
	data, err := s.client.Get(ctx, key(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load otp record: %w", err)
	}
	return decode(data)
}

// Update reads, decides and applies under WATCH. fn may run more than once when
// a concurrent writer touches the key; after maxTxRetries the update fails with
// sentinel.ErrConflict.
func (s *RedisStore) Update(ctx context.Context, phone string, fn func(current *models.Record) (models.Action, error)) error {
	k := key(phone)
	txf := func(tx *redis.Tx) error {
		var current *models.Record
		data, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("load otp record: %w", err)
		default:
			if current, err = decode(data); err != nil {
				return err
			}
		}

		action, err := fn(current)
		if err != nil {
			return err
		}
		if action != models.ActionDelete {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, k)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return sentinel.ErrConflict
}

func decode(data []byte) (*models.Record, error) {
	var rec models.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode otp record: %w", err)
	}
	return &rec, nil
}
