package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "interview-agent"

// Redis keeps each record as a JSON string and indexes collections with a sorted set
// scored by a global insertion counter.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// OpenRedis connects using a redis:// URL or a plain host:port address.
func OpenRedis(ctx context.Context, addr string) (*Redis, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	return NewRedis(client), nil
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func recordKey(collection, id string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, collection, id)
}

func indexKey(collection string) string {
	return fmt.Sprintf("%s:%s:_index", redisKeyPrefix, collection)
}

func seqKey() string {
	return redisKeyPrefix + ":_seq"
}

func (r *Redis) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	prepared, err := prepareInsert(rec, r.now())
	if err != nil {
		return nil, err
	}

	data, err := marshalJSON(prepared)
	if err != nil {
		return nil, err
	}

	created, err := r.client.SetNX(ctx, recordKey(collection, prepared.ID()), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
	if !created {
		return nil, fmt.Errorf("%s: record %s already exists", collection, prepared.ID())
	}

	seq, err := r.client.Incr(ctx, seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("next sequence: %w", err)
	}

	if err := r.client.ZAdd(ctx, indexKey(collection), redis.Z{Score: float64(seq), Member: prepared.ID()}).Err(); err != nil {
		return nil, fmt.Errorf("index %s %s: %w", collection, prepared.ID(), err)
	}

	return prepared, nil
}

func (r *Redis) Get(ctx context.Context, collection, id string) (Record, error) {
	data, err := r.client.Get(ctx, recordKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", collection, id, err)
	}

	var rec Record
	if err := unmarshalJSON(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", collection, id, err)
	}
	return rec, nil
}

func (r *Redis) Query(ctx context.Context, collection string, filter Filter, order *Order) ([]Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	ids, err := r.client.ZRange(ctx, indexKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, recordKey(collection, id))
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	records := make([]Record, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry without a document
			continue
		}

		var rec Record
		if err := unmarshalJSON([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", collection, ids[i], err)
		}

		ok, err := matches(rec, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}

	applyOrder(records, order)
	return records, nil
}

func (r *Redis) Update(ctx context.Context, collection, id string, patch Record) error {
	current, err := r.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	merged, err := merge(current, patch)
	if err != nil {
		return err
	}

	data, err := marshalJSON(merged)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, recordKey(collection, id), data, 0).Err(); err != nil {
		return fmt.Errorf("update %s %s: %w", collection, id, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
