package storage

import (
	"encoding/json"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hakim/headerstat/internal/models"
)

// SaveRun persists a run record and indexes it under its source
func (s *Store) SaveRun(run *models.RunRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}

		runs := tx.Bucket([]byte(bucketRuns))
		if err := runs.Put([]byte(run.ID), data); err != nil {
			return err
		}

		// Update run index (source -> []run_id mapping)
		index := tx.Bucket([]byte(bucketRunIndex))
		sourceKey := []byte(run.Source)

		var runIDs []string
		if existing := index.Get(sourceKey); existing != nil {
			if err := json.Unmarshal(existing, &runIDs); err != nil {
				return err
			}
		}

		for _, id := range runIDs {
			if id == run.ID {
				return nil
			}
		}
		runIDs = append(runIDs, run.ID)

		indexData, err := json.Marshal(runIDs)
		if err != nil {
			return err
		}
		return index.Put(sourceKey, indexData)
	})
}

// GetRun retrieves a run record by ID. It returns nil, nil when the ID is unknown.
func (s *Store) GetRun(id string) (*models.RunRecord, error) {
	var run *models.RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketRuns)).Get([]byte(id))
		if data == nil {
			return nil // Not found
		}

		run = &models.RunRecord{}
		return json.Unmarshal(data, run)
	})

	return run, err
}

// ListRuns retrieves all runs for a source, sorted by StartedAt descending
func (s *Store) ListRuns(source string) ([]*models.RunRecord, error) {
	var runs []*models.RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketRunIndex)).Get([]byte(source))
		if data == nil {
			return nil // No runs for this source
		}

		var runIDs []string
		if err := json.Unmarshal(data, &runIDs); err != nil {
			return err
		}

		runsBucket := tx.Bucket([]byte(bucketRuns))
		for _, id := range runIDs {
			runData := runsBucket.Get([]byte(id))
			if runData == nil {
				continue
			}
			var run models.RunRecord
			if err := json.Unmarshal(runData, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	// Newest first
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

// ListSources returns every source with at least one run, sorted by name
func (s *Store) ListSources() ([]string, error) {
	var sources []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketRunIndex)).ForEach(func(k, _ []byte) error {
			sources = append(sources, string(k))
			return nil
		})
	})
	return sources, err
}

// GetLatestRun retrieves the most recent run for a source
func (s *Store) GetLatestRun(source string) (*models.RunRecord, error) {
	runs, err := s.ListRuns(source)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// UpdateRunStatus updates the status of a run and sets CompletedAt if applicable
func (s *Store) UpdateRunStatus(id string, status models.RunStatus) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(bucketRuns))

		data := runs.Get([]byte(id))
		if data == nil {
			return nil // Not found, no-op
		}

		var run models.RunRecord
		if err := json.Unmarshal(data, &run); err != nil {
			return err
		}

		run.Status = status

		// Set CompletedAt if transitioning to terminal state
		if (status == models.StatusComplete || status == models.StatusFailed) && run.CompletedAt == nil {
			now := time.Now()
			run.CompletedAt = &now
		}

		updated, err := json.Marshal(&run)
		if err != nil {
			return err
		}
		return runs.Put([]byte(id), updated)
	})
}
