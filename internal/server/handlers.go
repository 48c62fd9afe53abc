package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/store"
)

const maxSessionLimit = 200

// Task handlers

func (s *Server) handleListTasks(c *gin.Context) {
	var filter store.TaskFilter
	if st := c.Query("status"); st != "" {
		status := model.Status(st)
		filter.Status = &status
	}
	if q := c.Query("q"); q != "" {
		filter.Query = &q
	}

	tasks, err := s.backend.GetTasks(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.backend.GetTaskByID(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var task model.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task body: " + err.Error()})
		return
	}
	task.ID = ""
	s.saveTask(c, task, false, http.StatusCreated)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var task model.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task body: " + err.Error()})
		return
	}
	task.ID = c.Param("id")
	s.saveTask(c, task, true, http.StatusOK)
}

// saveTask validates, applies type-tag escalation, and persists.
func (s *Server) saveTask(c *gin.Context, task model.Task, isUpdate bool, status int) {
	if strings.TrimSpace(task.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	task = s.escalateByType(task)
	if task.Priority == model.PriorityHigh && strings.TrimSpace(task.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required for high priority tasks"})
		return
	}

	saved, err := s.backend.SaveTask(c.Request.Context(), currentUser(c), task, isUpdate)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}
	c.JSON(status, saved)
}

// escalateByType forces high priority when a strategic marker appears in
// the task's type labels.
func (s *Server) escalateByType(t model.Task) model.Task {
	if t.Priority == model.PriorityHigh {
		return t
	}
	if !s.escalator.Matches("", "", t.PriorityTags.Type) {
		return t
	}
	t, _ = s.escalator.EscalateTask(t)
	return t
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.backend.DeleteTask(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleTaskCounts(c *gin.Context) {
	counts, err := s.backend.StatusCounts(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (s *Server) handleBoard(c *gin.Context) {
	tasks, err := s.backend.GetTasks(c.Request.Context(), currentUser(c), store.TaskFilter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.classifier.Classify(tasks, s.now()))
}

// Focus session handlers

// focusRequest keeps required fields as pointers so that absence can be
// told apart from zero values.
type focusRequest struct {
	StartTime      *time.Time             `json:"startTime"`
	EndTime        *time.Time             `json:"endTime"`
	CompletedTasks *[]model.CompletedTask `json:"completedTasks"`
	TaskChanges    []model.ChangeEntry    `json:"taskChanges"`
	Digest         string                 `json:"digest"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req focusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session body: " + err.Error()})
		return
	}
	if req.StartTime == nil || req.EndTime == nil || req.CompletedTasks == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startTime, endTime and completedTasks are required"})
		return
	}
	if req.EndTime.Before(*req.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endTime is before startTime"})
		return
	}

	session := model.FocusSession{
		StartTime:      *req.StartTime,
		EndTime:        req.EndTime,
		TimeSpent:      int64(req.EndTime.Sub(*req.StartTime) / time.Second),
		CompletedTasks: *req.CompletedTasks,
		TaskChanges:    req.TaskChanges,
		Digest:         req.Digest,
	}
	if session.TaskChanges == nil {
		session.TaskChanges = []model.ChangeEntry{}
	}
	if session.Digest != "" && !session.Verify() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session digest mismatch"})
		return
	}
	session.Seal()

	saved, err := s.backend.CreateSession(c.Request.Context(), currentUser(c), session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit := store.DefaultSessionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxSessionLimit)
	}

	sessions, err := s.backend.ListSessions(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []model.FocusSession{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Server) writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
