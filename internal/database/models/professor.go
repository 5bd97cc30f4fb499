package models

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfessorTitle is the academic rank of a professor
type ProfessorTitle string

const (
	TitleAssistantProfessor     ProfessorTitle = "ASSISTANT_PROFESSOR"
	TitleAssociateProfessor     ProfessorTitle = "ASSOCIATE_PROFESSOR"
	TitleProfessor              ProfessorTitle = "PROFESSOR"
	TitleDistinguishedProfessor ProfessorTitle = "DISTINGUISHED_PROFESSOR"
	TitleEmeritusProfessor      ProfessorTitle = "EMERITUS_PROFESSOR"
	TitleVisitingProfessor      ProfessorTitle = "VISITING_PROFESSOR"
	TitleAdjunctProfessor       ProfessorTitle = "ADJUNCT_PROFESSOR"
)

var titleDisplayNames = map[ProfessorTitle]string{
	TitleAssistantProfessor:     "Assistant Professor",
	TitleAssociateProfessor:     "Associate Professor",
	TitleProfessor:              "Professor",
	TitleDistinguishedProfessor: "Distinguished Professor",
	TitleEmeritusProfessor:      "Professor Emeritus",
	TitleVisitingProfessor:      "Visiting Professor",
	TitleAdjunctProfessor:       "Adjunct Professor",
}

func (t ProfessorTitle) Valid() bool {
	_, ok := titleDisplayNames[t]
	return ok
}

func (t ProfessorTitle) DisplayName() string {
	return titleDisplayNames[t]
}

// Scan implements the sql.Scanner interface for ProfessorTitle
func (t *ProfessorTitle) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = ""
	case []byte:
		*t = ProfessorTitle(v)
	case string:
		*t = ProfessorTitle(v)
	default:
		return errors.New("invalid professor title type")
	}
	return nil
}

// Value implements the driver.Valuer interface for ProfessorTitle
func (t ProfessorTitle) Value() (driver.Value, error) {
	if t == "" {
		return nil, nil
	}
	return string(t), nil
}

// Professor links a user account to a department
type Professor struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	DepartmentID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"department_id"`
	Title             ProfessorTitle `gorm:"type:varchar(32)" json:"title,omitempty"`
	FirstName         string         `gorm:"not null" json:"first_name"`
	LastName          string         `gorm:"not null" json:"last_name"`
	OfficeLocation    *string        `json:"office_location,omitempty"`
	Phone             *string        `json:"phone,omitempty"`
	ResearchInterests string         `json:"-"` // comma-joined
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	User       User       `gorm:"foreignKey:UserID" json:"-"`
	Department Department `gorm:"foreignKey:DepartmentID" json:"-"`
}

// TableName overrides the table name
func (Professor) TableName() string {
	return "professors"
}

func (p *Professor) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ResearchInterestsList splits the stored interests
func (p *Professor) ResearchInterestsList() []string {
	if p.ResearchInterests == "" {
		return []string{}
	}
	return strings.Split(p.ResearchInterests, ",")
}

// SetResearchInterestsList stores interests comma-joined, dropping blanks
func (p *Professor) SetResearchInterestsList(interests []string) {
	cleaned := make([]string, 0, len(interests))
	for _, interest := range interests {
		if trimmed := strings.TrimSpace(interest); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	p.ResearchInterests = strings.Join(cleaned, ",")
}

// ProfessorSummary is the public view of a professor profile
type ProfessorSummary struct {
	ID                uuid.UUID      `json:"id"`
	DepartmentID      uuid.UUID      `json:"department_id"`
	Title             ProfessorTitle `json:"title,omitempty"`
	TitleDisplayName  string         `json:"title_display_name,omitempty"`
	FirstName         string         `json:"first_name"`
	LastName          string         `json:"last_name"`
	OfficeLocation    *string        `json:"office_location,omitempty"`
	Phone             *string        `json:"phone,omitempty"`
	ResearchInterests []string       `json:"research_interests"`
}

func (p *Professor) Summary() *ProfessorSummary {
	return &ProfessorSummary{
		ID:                p.ID,
		DepartmentID:      p.DepartmentID,
		Title:             p.Title,
		TitleDisplayName:  p.Title.DisplayName(),
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		OfficeLocation:    p.OfficeLocation,
		Phone:             p.Phone,
		ResearchInterests: p.ResearchInterestsList(),
	}
}
