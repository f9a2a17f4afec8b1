package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/student-records/internal/domain"
)

// ErrNotFound is returned when a record cannot be located.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateStudent inserts s. Constraint violations are returned unchanged so the
// caller can classify them.
func CreateStudent(ctx context.Context, db *gorm.DB, s *domain.Student) error {
	return db.WithContext(ctx).Create(s).Error
}

// GetStudent fetches a student by control id.
func GetStudent(ctx context.Context, db *gorm.DB, controlID string) (*domain.Student, error) {
	var s domain.Student
	err := db.WithContext(ctx).Where("control_id = ?", controlID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListStudents returns every student ordered by control id.
func ListStudents(ctx context.Context, db *gorm.DB) ([]domain.Student, error) {
	out := make([]domain.Student, 0)
	err := db.WithContext(ctx).Order("control_id ASC").Find(&out).Error
	return out, err
}

// ExistsByControlID reports whether a row with controlID is present.
func ExistsByControlID(ctx context.Context, db *gorm.DB, controlID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Student{}).
		Where("control_id = ?", controlID).
		Limit(1).Count(&n).Error
	return n > 0, err
}

// ExistsByFullName reports whether a row carries exactly this name triple.
// Comparison is exact; callers normalize beforehand.
func ExistsByFullName(ctx context.Context, db *gorm.DB, first, paternal, maternal string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Student{}).
		Where("first_name = ? AND paternal_surname = ? AND maternal_surname = ?", first, paternal, maternal).
		Limit(1).Count(&n).Error
	return n > 0, err
}

// UpdateStudentFields applies a column->value patch to one student.
// Returns ErrNotFound if no row matched.
func UpdateStudentFields(ctx context.Context, db *gorm.DB, controlID string, fields map[string]any) error {
	res := db.WithContext(ctx).Model(&domain.Student{}).
		Where("control_id = ?", controlID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStudent removes a student. Returns ErrNotFound if no row matched.
func DeleteStudent(ctx context.Context, db *gorm.DB, controlID string) error {
	res := db.WithContext(ctx).Where("control_id = ?", controlID).Delete(&domain.Student{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
