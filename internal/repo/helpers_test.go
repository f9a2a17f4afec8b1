package repo

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/student-records/internal/domain"
)

// newTestDB opens a per-test in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newIdemDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newIdemDB opens a unique in-memory database and migrates only the given models.
func newIdemDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func ctxBG() context.Context { return context.Background() }

func seedStudent(t *testing.T, db *gorm.DB, id, first, paternal, maternal string, semester int) *domain.Student {
	t.Helper()
	s := &domain.Student{
		ControlID:       id,
		FirstName:       first,
		PaternalSurname: paternal,
		MaternalSurname: maternal,
		Semester:        semester,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return s
}
