package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pixperk/peterson/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var runsBucket = []byte("runs")

// BoltDBStorage keeps a history of harness runs in a single BoltDB file
// each report is stored as JSON keyed by its run ID
type BoltDBStorage struct {
	db *bolt.DB
}

func NewBoltDBStorage(dataDir string) (*BoltDBStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "runs.db")

	//timeout so a second process on the same dir fails instead of hanging
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs bucket: %w", err)
	}

	return &BoltDBStorage{db: db}, nil
}

// persists a report, overwriting any earlier report with the same run ID
func (b *BoltDBStorage) Save(report *types.Report) error {
	if report.RunID == "" {
		return fmt.Errorf("report has no run ID")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(report.RunID), data)
	})
}

// returns the report for runID or types.ErrRunNotFound
func (b *BoltDBStorage) Get(runID string) (*types.Report, error) {
	var report types.Report

	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(runsBucket).Get([]byte(runID))
		if data == nil {
			return types.ErrRunNotFound
		}
		return json.Unmarshal(data, &report)
	})
	if err != nil {
		return nil, err
	}

	return &report, nil
}

// returns every stored report ordered by start time
func (b *BoltDBStorage) List() ([]*types.Report, error) {
	var reports []*types.Report

	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, data []byte) error {
			var report types.Report
			if err := json.Unmarshal(data, &report); err != nil {
				return err
			}
			reports = append(reports, &report)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	//keys are random uuids, so bolt's key order says nothing about run order
	slices.SortStableFunc(reports, func(a, b *types.Report) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return reports, nil
}

func (b *BoltDBStorage) Close() error {
	return b.db.Close()
}
