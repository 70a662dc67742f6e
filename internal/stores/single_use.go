package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const (
	singleUseRecordVersionV1 = 1

	consumeMaxRetries = 4
	consumeRetryDelay = 2 * time.Millisecond
)

var (
	ErrSingleUseNotFound         = errors.New("single-use record not found")
	ErrSingleUseRedisUnavailable = errors.New("single-use redis unavailable")
	ErrSingleUseContention       = errors.New("single-use record contention")
)

// SingleUseRecord is the persisted form of a verification or reset token.
type SingleUseRecord struct {
	UserID    string
	Kind      string
	ExpiresAt int64
	CreatedAt int64
}

// SingleUseStore keeps single-use records in Redis keyed by token digest.
type SingleUseStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewSingleUseStore(redisClient redis.UniversalClient, prefix string) *SingleUseStore {
	if prefix == "" {
		prefix = "asu"
	}
	return &SingleUseStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock overrides the clock used for key TTLs and the expiry check on consume.
func (s *SingleUseStore) WithClock(now func() time.Time) *SingleUseStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *SingleUseStore) key(kind string, digest [32]byte) string {
	return s.prefix + ":" + kind + ":" + hex.EncodeToString(digest[:])
}

// Save writes record under digest. A record whose expiry is not in the future is never
// persisted, which makes it unusable.
func (s *SingleUseStore) Save(ctx context.Context, digest [32]byte, record *SingleUseRecord) error {
	if record == nil || record.Kind == "" || record.UserID == "" {
		return errors.New("invalid single-use record")
	}

	ttl := time.Unix(record.ExpiresAt, 0).Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	encoded, err := encodeSingleUseRecord(record)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, s.key(record.Kind, digest), encoded, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSingleUseRedisUnavailable, err)
	}
	if !ok {
		return errors.New("single-use record already exists")
	}
	return nil
}

// Consume atomically reads and deletes the record for digest. Concurrent callers race on
// a WATCH/MULTI transaction; only the one whose EXEC commits receives the record.
func (s *SingleUseStore) Consume(ctx context.Context, kind string, digest [32]byte) (*SingleUseRecord, error) {
	key := s.key(kind, digest)
	var matched *SingleUseRecord

	backoff := retry.WithMaxRetries(consumeMaxRetries, retry.NewConstant(consumeRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		matched = nil
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeSingleUseRecord(data)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			if record.Kind != kind || s.now().Unix() >= record.ExpiresAt {
				return ErrSingleUseNotFound
			}

			matched = record
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		return matched, nil
	case errors.Is(err, redis.Nil), errors.Is(err, ErrSingleUseNotFound):
		return nil, ErrSingleUseNotFound
	case errors.Is(err, redis.TxFailedErr):
		return nil, ErrSingleUseContention
	default:
		return nil, fmt.Errorf("%w: %v", ErrSingleUseRedisUnavailable, err)
	}
}

func encodeSingleUseRecord(record *SingleUseRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(singleUseRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.Kind, record.UserID} {
		if len(field) > 65535 {
			return nil, errors.New("single-use record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeSingleUseRecord(data []byte) (*SingleUseRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != singleUseRecordVersionV1 {
		return nil, errors.New("invalid single-use record version")
	}

	record := &SingleUseRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}

	kind, err := readString(reader)
	if err != nil {
		return nil, err
	}
	userID, err := readString(reader)
	if err != nil {
		return nil, err
	}
	record.Kind = kind
	record.UserID = userID

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in single-use record")
	}
	return record, nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
