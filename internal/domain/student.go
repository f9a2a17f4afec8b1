// Package domain defines the persistence models of the student-records
// service. These types are mapped with GORM and shared across the repository,
// service and HTTP layers.
package domain

import (
	"strings"
	"time"
)

// Schema identifiers referenced by the insert-error classifier. They must stay
// in sync with the GORM tags below.
const (
	// StudentsTable is the table holding student records.
	StudentsTable = "students"
	// PrimaryKeyConstraint is the name Postgres gives the control_id primary key.
	PrimaryKeyConstraint = "students_pkey"
	// FullNameConstraint is the unique index over the three name columns.
	FullNameConstraint = "ux_students_full_name"
)

// Student is a single student record.
//
// Fields:
//   - ControlID: primary identifier, immutable after creation.
//   - FirstName, PaternalSurname, MaternalSurname: together unique across all
//     records (ux_students_full_name), regardless of control id or semester.
//   - Semester: current semester number.
//   - CreatedAt / UpdatedAt: bookkeeping managed by GORM, never serialized;
//     used for list ETags.
type Student struct {
	ControlID       string    `json:"controlId"       gorm:"column:control_id;type:varchar(64);primaryKey"`
	FirstName       string    `json:"firstName"       gorm:"column:first_name;type:varchar(255);not null;uniqueIndex:ux_students_full_name,priority:1"`
	PaternalSurname string    `json:"paternalSurname" gorm:"column:paternal_surname;type:varchar(255);not null;uniqueIndex:ux_students_full_name,priority:2"`
	MaternalSurname string    `json:"maternalSurname" gorm:"column:maternal_surname;type:varchar(255);not null;uniqueIndex:ux_students_full_name,priority:3"`
	Semester        int       `json:"semester"        gorm:"column:semester;not null"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// TableName returns the database table name for Student.
func (Student) TableName() string { return StudentsTable }

// FullName joins the three name parts with single spaces.
func (s Student) FullName() string {
	return strings.Join([]string{s.FirstName, s.PaternalSurname, s.MaternalSurname}, " ")
}
