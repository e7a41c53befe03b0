package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/finsight/internal/fees"
)

const (
	scanBucketName = "scans"
	feeBucketName  = "fees"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	// SaveScan saves a receipt scan
	SaveScan(scan *Scan) error

	// GetScan retrieves a scan by ID
	GetScan(id string) (*Scan, error)

	// ListScans returns all scans
	ListScans() ([]*Scan, error)

	// DeleteScan removes a scan
	DeleteScan(id string) error

	// SaveFee stores a confirmed fee keyed by its expense ID
	SaveFee(fee fees.DetectedFee) error

	// ListFees returns every confirmed fee
	ListFees() ([]fees.DetectedFee, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens the database at path and creates the buckets
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{scanBucketName, feeBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) put(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", bucket, err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

// SaveScan saves a receipt scan
func (b *BoltDB) SaveScan(scan *Scan) error {
	return b.put(scanBucketName, scan.ID, scan)
}

// GetScan retrieves a scan by ID
func (b *BoltDB) GetScan(id string) (*Scan, error) {
	var scan *Scan
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(scanBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("scan %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &scan)
	})
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// ListScans returns all scans in ID order
func (b *BoltDB) ListScans() ([]*Scan, error) {
	scans := make([]*Scan, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(scanBucketName)).ForEach(func(k, v []byte) error {
			var scan Scan
			if err := json.Unmarshal(v, &scan); err != nil {
				return fmt.Errorf("unmarshaling scan: %w", err)
			}
			scans = append(scans, &scan)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return scans, nil
}

// DeleteScan removes a scan
func (b *BoltDB) DeleteScan(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(scanBucketName)).Delete([]byte(id))
	})
}

// SaveFee stores a confirmed fee, replacing any earlier fee for the same expense
func (b *BoltDB) SaveFee(fee fees.DetectedFee) error {
	return b.put(feeBucketName, fee.ExpenseID, fee)
}

// ListFees returns every confirmed fee in expense ID order
func (b *BoltDB) ListFees() ([]fees.DetectedFee, error) {
	confirmed := make([]fees.DetectedFee, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(feeBucketName)).ForEach(func(k, v []byte) error {
			var fee fees.DetectedFee
			if err := json.Unmarshal(v, &fee); err != nil {
				return fmt.Errorf("unmarshaling fee: %w", err)
			}
			confirmed = append(confirmed, fee)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
