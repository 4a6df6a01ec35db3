package receipt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptsBucket = "receipts"
	metaBucket     = "meta"
	syncedAtKey    = "synced_at"
)

// Snapshot keeps the last fetched receipt list for offline viewing
type Snapshot interface {
	// SaveReceipts replaces the stored list and records when it was fetched
	SaveReceipts(receipts []Receipt, at time.Time) error

	// LoadReceipts returns the stored list in fetch order and when it was fetched.
	// A snapshot that was never saved returns an empty list and a zero time.
	LoadReceipts() ([]Receipt, time.Time, error)

	// Close closes the underlying store
	Close() error
}

// BoltSnapshot implements Snapshot using BoltDB
type BoltSnapshot struct {
	db *bbolt.DB
}

// NewBoltSnapshot opens or creates the snapshot database at path
func NewBoltSnapshot(path string) (*BoltSnapshot, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(receiptsBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(metaBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltSnapshot{db: db}, nil
}

// SaveReceipts replaces the stored receipt list in one transaction
func (b *BoltSnapshot) SaveReceipts(receipts []Receipt, at time.Time) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(receiptsBucket)); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("clearing receipts: %w", err)
		}
		bucket, err := tx.CreateBucket([]byte(receiptsBucket))
		if err != nil {
			return fmt.Errorf("creating receipts bucket: %w", err)
		}

		for _, receipt := range receipts {
			data, err := json.Marshal(receipt)
			if err != nil {
				return fmt.Errorf("marshaling receipt: %w", err)
			}
			// Sequence keys keep the server's order
			seq, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("allocating key: %w", err)
			}
			if err := bucket.Put(sequenceKey(seq), data); err != nil {
				return fmt.Errorf("storing receipt %s: %w", receipt.ID, err)
			}
		}

		stamp, err := at.UTC().MarshalText()
		if err != nil {
			return fmt.Errorf("marshaling sync time: %w", err)
		}
		return tx.Bucket([]byte(metaBucket)).Put([]byte(syncedAtKey), stamp)
	})
}

// LoadReceipts returns the stored receipt list
func (b *BoltSnapshot) LoadReceipts() ([]Receipt, time.Time, error) {
	receipts := make([]Receipt, 0)
	var syncedAt time.Time
	err := b.db.View(func(tx *bbolt.Tx) error {
		err := tx.Bucket([]byte(receiptsBucket)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, receipt)
			return nil
		})
		if err != nil {
			return err
		}

		if stamp := tx.Bucket([]byte(metaBucket)).Get([]byte(syncedAtKey)); stamp != nil {
			if err := syncedAt.UnmarshalText(stamp); err != nil {
				return fmt.Errorf("unmarshaling sync time: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	return receipts, syncedAt, nil
}

// Close closes the database connection
func (b *BoltSnapshot) Close() error {
	return b.db.Close()
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
