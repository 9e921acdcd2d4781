package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/models"
	apperrors "github.com/charlesng35/quotedesk/pkg/errors"
)

// ErrProjectNotFound indicates the project does not exist or belongs to someone else.
var ErrProjectNotFound = apperrors.New("PROJECT_NOT_FOUND", "Project not found", http.StatusNotFound)

// CreateProjectInput describes a new project.
type CreateProjectInput struct {
	OwnerID     string
	Title       string
	Description string
	ClientName  string
	ClientEmail string
}

// ListProjectsInput filters owner projects.
type ListProjectsInput struct {
	OwnerID string
	Status  string
	Limit   int
	Offset  int
}

// ProjectService manages client projects.
type ProjectService struct {
	db *gorm.DB
}

// NewProjectService constructs a ProjectService.
func NewProjectService(db *gorm.DB) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	return &ProjectService{db: db}, nil
}

// Create stores a draft project for the owner.
func (s *ProjectService) Create(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, errors.New("project service: owner id is required")
	}

	project := &models.Project{
		OwnerID:     input.OwnerID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		ClientName:  strings.TrimSpace(input.ClientName),
		ClientEmail: strings.ToLower(strings.TrimSpace(input.ClientEmail)),
		Status:      models.ProjectStatusDraft,
	}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("project service: create project: %w", err)
	}
	return project, nil
}

// Get loads one of the owner's projects.
func (s *ProjectService) Get(ctx context.Context, ownerID, id string) (*models.Project, error) {
	ctx = ensureContext(ctx)

	var project models.Project
	if err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("project service: get project: %w", err)
	}
	return &project, nil
}

// List returns the owner's projects, newest first.
func (s *ProjectService) List(ctx context.Context, input ListProjectsInput) ([]models.Project, int64, error) {
	ctx = ensureContext(ctx)
	limit, offset := pageBounds(input.Limit, input.Offset)

	query := s.db.WithContext(ctx).Model(&models.Project{}).Where("owner_id = ?", input.OwnerID)
	if status := strings.TrimSpace(input.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("project service: count projects: %w", err)
	}

	var projects []models.Project
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("project service: list projects: %w", err)
	}
	return projects, total, nil
}
