package services

import (
	"errors"

	"github.com/huangang/cipulse/internal/models"
	"github.com/huangang/cipulse/pkg/response"
	"gorm.io/gorm"
)

// TaskService implements the to-do resource.
type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

func (s *TaskService) List() ([]models.Task, error) {
	var tasks []models.Task
	if err := s.db.Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) Create(title, description string) (*models.Task, error) {
	if title == "" {
		return nil, response.NewBadRequest("title is required")
	}

	task := models.Task{Title: title, Description: description}
	if err := s.db.Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) SetCompleted(id uint, completed bool) (*models.Task, error) {
	var task models.Task
	if err := s.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("task not found")
		}
		return nil, err
	}

	task.Completed = completed
	if err := s.db.Save(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Delete(id uint) error {
	result := s.db.Delete(&models.Task{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("task not found")
	}
	return nil
}
