package models

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&OrderCounter{}))
	return db
}

func TestNextOrderNumberSequence(t *testing.T) {
	db := newTestDB(t)

	for i := 1; i <= 3; i++ {
		var got string
		err := db.Transaction(func(tx *gorm.DB) error {
			n, err := NextOrderNumber(tx)
			got = n
			return err
		})
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("RMOR%06d", i), got)
	}
}

func TestNextOrderNumberConcurrentUnique(t *testing.T) {
	db := newTestDB(t)

	const workers = 20
	var (
		mu      sync.Mutex
		numbers = make(map[string]bool)
		errs    []error
		wg      sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				n, err := NextOrderNumber(tx)
				if err != nil {
					return err
				}
				mu.Lock()
				numbers[n] = true
				mu.Unlock()
				return nil
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, numbers, workers, "every claim must yield a distinct number")
}
