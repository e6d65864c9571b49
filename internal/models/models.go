// Package models holds the persisted entities and the normalized OCR result.
package models

import "time"

// Account maps an authenticated identity to its profile. AccountType is one
// of "student", "university" or "unknown" until a profile is created.
type Account struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	FirebaseUID string `gorm:"uniqueIndex;size:128" json:"firebase_uid"`
	AccountType string `json:"account_type"`
	OwnerID     uint   `json:"owner_id"`
	OwnerType   string `json:"owner_type"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Organization is a registered university or institution.
type Organization struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	FirebaseUID   string `gorm:"uniqueIndex;size:128" json:"firebase_uid"`
	AcadEmail     string `json:"acad_email"`
	OrgName       string `json:"org_name"`
	OrgType       string `json:"org_type"`
	OrgURL        string `json:"org_url"`
	OrgDesc       string `json:"org_desc"`
	Country       string `json:"country"`
	State         string `json:"state"`
	City          string `json:"city"`
	TotalStudents int    `json:"total_students"`
	Address       string `json:"address"`
	PostalCode    string `json:"postal_code"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Student is a registered credential holder.
type Student struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	FirebaseUID  string `gorm:"uniqueIndex;size:128" json:"firebase_uid"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	StudentEmail string `json:"student_email"`
	IsVerified   bool   `json:"is_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LegacyCredential is a historical record imported by a university through
// bulk CSV upload. Document verification matches OCR output against these.
type LegacyCredential struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	StudentName    string     `json:"student_name"`
	RollNumber     string     `gorm:"index" json:"roll_number"`
	Program        string     `json:"program"`
	Major          string     `json:"major"`
	BatchYear      int        `json:"batch_year"`
	IssuedDate     *time.Time `json:"issued_date"`
	GraduationDate string     `json:"graduation_date"`

	UniversityID uint         `json:"university_id"`
	University   Organization `gorm:"foreignKey:UniversityID" json:"university"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credential is a record issued by a university to a student. Its ID appears
// in share links, QR codes and badges.
type Credential struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IssuedAt    time.Time `json:"issued_at"`

	StudentID    uint         `json:"student_id"`
	Student      Student      `gorm:"foreignKey:StudentID" json:"student"`
	UniversityID uint         `json:"university_id"`
	University   Organization `gorm:"foreignKey:UniversityID" json:"university"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParsedCredential holds the normalized fields extracted from OCR text for
// verification against the database.
type ParsedCredential struct {
	RegisterNumber string `json:"register_number"`
	StudentName    string `json:"student_name"`
	CourseName     string `json:"course_name"`
	YearOfPassing  string `json:"year_of_passing"`
	UniversityName string `json:"university_name"`
}
