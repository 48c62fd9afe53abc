package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/task-focus/internal/auth"
	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/priority"
	"github.com/nhle/task-focus/internal/store"
)

// userKey is the gin context key holding the authenticated user ID.
const userKey = "userID"

// Backend is the persistence the server exposes over HTTP.
type Backend interface {
	SaveTask(ctx context.Context, userID string, task model.Task, isUpdate bool) (*model.Task, error)
	GetTasks(ctx context.Context, userID string, filter store.TaskFilter) ([]model.Task, error)
	GetTaskByID(ctx context.Context, userID, id string) (*model.Task, error)
	DeleteTask(ctx context.Context, userID, id string) error
	StatusCounts(ctx context.Context, userID string) (map[model.Status]int, error)
	CreateSession(ctx context.Context, userID string, session model.FocusSession) (*model.FocusSession, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]model.FocusSession, error)
}

// Server is the task and focus-session REST API.
type Server struct {
	backend    Backend
	secret     string
	classifier *priority.Classifier
	escalator  priority.Escalator
	now        func() time.Time
	logger     *log.Logger
	router     *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now for token expiry and board classification.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the logger for warnings raised while classifying.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRouter supplies the gin engine; tests pass gin.New() in test mode.
func WithRouter(r *gin.Engine) Option {
	return func(s *Server) { s.router = r }
}

// NewServer builds the API. secret verifies bearer tokens (HS256).
func NewServer(backend Backend, cfg model.EngineConfig, secret string, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		secret:  secret,
		now:     time.Now,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.router == nil {
		s.router = gin.Default()
	}

	s.classifier = priority.NewClassifier(cfg, func(t model.Task, msg string) {
		s.logger.Printf("classify: %s", msg)
	})
	s.escalator = s.classifier.Escalator()

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api", s.requireAuth)
	{
		api.GET("/tasks", s.handleListTasks)
		api.GET("/stats", s.handleTaskCounts)
		api.GET("/tasks/:id", s.handleGetTask)
		api.POST("/tasks", s.handleCreateTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)

		api.GET("/board", s.handleBoard)

		api.POST("/focus", s.handleCreateSession)
		api.GET("/focus", s.handleListSessions)
	}

	return s
}

// Handler exposes the router for http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves the API on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requireAuth verifies the bearer token and stores the user ID.
func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	claims, err := auth.Verify(token, s.secret, s.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.Set(userKey, claims.UserID)
	c.Next()
}

func currentUser(c *gin.Context) string {
	return c.GetString(userKey)
}
