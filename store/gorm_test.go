package store

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGormStoreTest(t *testing.T) *Gorm {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	g, err := NewGorm(db)
	if err != nil {
		t.Fatalf("new gorm store: %v", err)
	}
	return g
}

func TestGormConformance(t *testing.T) {
	conformance(t, newGormStoreTest(t))
}
