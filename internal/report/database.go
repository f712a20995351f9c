package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "reports"

// ErrNotFound is returned when no report is stored under an id
var ErrNotFound = errors.New("report not found")

// DB defines the interface for report persistence
type DB interface {
	// SaveReport upserts a report keyed by its ID
	SaveReport(report *DailyReport) error

	// GetReport retrieves a report by ID
	GetReport(id string) (*DailyReport, error)

	// ListReports returns all reports, newest first
	ListReports() ([]*DailyReport, error)

	// DeleteReport removes a report from the database
	DeleteReport(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveReport upserts a report keyed by its ID
func (b *BoltDB) SaveReport(report *DailyReport) error {
	if report.ID == "" {
		return fmt.Errorf("saving report: empty id")
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		return bucket.Put([]byte(report.ID), data)
	})
}

// GetReport retrieves a report by ID
func (b *BoltDB) GetReport(id string) (*DailyReport, error) {
	var report *DailyReport
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns all reports sorted by creation time, newest first
func (b *BoltDB) ListReports() ([]*DailyReport, error) {
	reports := make([]*DailyReport, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var report DailyReport
			if err := json.Unmarshal(v, &report); err != nil {
				return fmt.Errorf("unmarshaling report %s: %w", k, err)
			}
			reports = append(reports, &report)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

// DeleteReport removes a report from the database
func (b *BoltDB) DeleteReport(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
