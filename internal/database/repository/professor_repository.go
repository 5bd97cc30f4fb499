package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/academichub/backend-go/internal/database/models"
)

// ProfessorRepository defines the interface for professor persistence
type ProfessorRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Professor, error)
	// CreateWithUser inserts the user and the linked professor in one transaction
	CreateWithUser(ctx context.Context, user *models.User, professor *models.Professor) error
}

type professorRepository struct {
	db *gorm.DB
}

func NewProfessorRepository(db *gorm.DB) ProfessorRepository {
	return &professorRepository{db: db}
}

func (r *professorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Professor, error) {
	var professor models.Professor
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&professor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfessorNotFound
		}
		return nil, err
	}
	return &professor, nil
}

func (r *professorRepository) CreateWithUser(ctx context.Context, user *models.User, professor *models.Professor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := NewUserRepository(tx).Create(ctx, user); err != nil {
			return err
		}
		professor.UserID = user.ID
		return tx.Omit(clause.Associations).Create(professor).Error
	})
}

var (
	ErrProfessorNotFound = errors.New("professor not found")
)
