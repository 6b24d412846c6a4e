package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/cipulse/internal/services"
	"github.com/huangang/cipulse/pkg/response"
	"gorm.io/gorm"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{service: services.NewTaskService(db)}
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateTaskRequest struct {
	Completed bool `json:"completed"`
}

func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.service.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	task, err := h.service.Create(req.Title, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	task, err := h.service.SetCompleted(uint(id), req.Completed)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}

	if err := h.service.Delete(uint(id)); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
