package helpers

import (
	"fmt"

	"gorm.io/gorm"
)

const DefaultBatchSize = 500

// WrapTxAndCommit runs fn inside tx when one is given. Otherwise it opens a
// transaction on db and commits it if fn succeeds or rolls it back if fn fails.
func WrapTxAndCommit[T any](fn func(*gorm.DB) (T, error), db *gorm.DB, tx *gorm.DB) (T, error) {
	exists := tx != nil

	if !exists {
		tx = db.Begin()
		if tx.Error != nil {
			var zero T
			return zero, fmt.Errorf("failed to begin transaction: %w", tx.Error)
		}
	}

	res, err := fn(tx)
	if exists {
		return res, err
	}

	if err != nil {
		tx.Rollback()
		return res, err
	}
	if cErr := tx.Commit().Error; cErr != nil {
		return res, fmt.Errorf("failed to commit transaction: %w", cErr)
	}
	return res, nil
}

// CreateInBatches inserts rows in chunks of batchSize. An empty slice is a
// no-op rather than a gorm error.
func CreateInBatches[T any](tx *gorm.DB, rows []T, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return tx.CreateInBatches(rows, batchSize).Error
}
