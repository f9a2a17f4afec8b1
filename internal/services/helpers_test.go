package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/student-records/internal/domain"
	"github.com/tbourn/student-records/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:studentsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// storeRepo adapts the repo package functions to StudentRepo.
type storeRepo struct{}

func (storeRepo) CreateStudent(ctx context.Context, db *gorm.DB, s *domain.Student) error {
	return repo.CreateStudent(ctx, db, s)
}
func (storeRepo) GetStudent(ctx context.Context, db *gorm.DB, id string) (*domain.Student, error) {
	return repo.GetStudent(ctx, db, id)
}
func (storeRepo) ListStudents(ctx context.Context, db *gorm.DB) ([]domain.Student, error) {
	return repo.ListStudents(ctx, db)
}
func (storeRepo) ExistsByControlID(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	return repo.ExistsByControlID(ctx, db, id)
}
func (storeRepo) ExistsByFullName(ctx context.Context, db *gorm.DB, f, p, m string) (bool, error) {
	return repo.ExistsByFullName(ctx, db, f, p, m)
}
func (storeRepo) UpdateStudentFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	return repo.UpdateStudentFields(ctx, db, id, fields)
}
func (storeRepo) DeleteStudent(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteStudent(ctx, db, id)
}
func (storeRepo) StudentsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.StudentsStats(ctx, db)
}

// hookRepo wraps storeRepo and lets a test override single methods.
type hookRepo struct {
	storeRepo
	existsID   func() (bool, error)
	existsName func() (bool, error)
	create     func(ctx context.Context, db *gorm.DB, s *domain.Student) error
	list       func() ([]domain.Student, error)
}

func (h hookRepo) ExistsByControlID(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	if h.existsID != nil {
		return h.existsID()
	}
	return h.storeRepo.ExistsByControlID(ctx, db, id)
}
func (h hookRepo) ExistsByFullName(ctx context.Context, db *gorm.DB, f, p, m string) (bool, error) {
	if h.existsName != nil {
		return h.existsName()
	}
	return h.storeRepo.ExistsByFullName(ctx, db, f, p, m)
}
func (h hookRepo) CreateStudent(ctx context.Context, db *gorm.DB, s *domain.Student) error {
	if h.create != nil {
		return h.create(ctx, db, s)
	}
	return h.storeRepo.CreateStudent(ctx, db, s)
}
func (h hookRepo) ListStudents(ctx context.Context, db *gorm.DB) ([]domain.Student, error) {
	if h.list != nil {
		return h.list()
	}
	return h.storeRepo.ListStudents(ctx, db)
}

func countStudents(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.Student{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func body(controlID, first, paternal, maternal string, semester any) map[string]any {
	return map[string]any{
		FieldControlID:       controlID,
		FieldFirstName:       first,
		FieldPaternalSurname: paternal,
		FieldMaternalSurname: maternal,
		FieldSemester:        semester,
	}
}
