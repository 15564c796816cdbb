package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"tasklist-backend/internal/aiclient"
	"tasklist-backend/internal/middleware"
	"tasklist-backend/internal/models"
	"tasklist-backend/internal/repository"
	"tasklist-backend/internal/service"
	"tasklist-backend/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUserRepository is an in-memory credential store.
type fakeUserRepository struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[int64]*models.User{}, nextID: 1}
}

func (f *fakeUserRepository) Create(user *models.User) error {
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.nextID++
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepository) GetByUsername(username string) (*models.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepository) GetByID(id int64) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepository) UpdatePassword(id int64, passwordHash string) error {
	user, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	return nil
}

// fakeTaskRepository is an in-memory task store honoring owner scoping.
type fakeTaskRepository struct {
	tasks  map[int64]*models.Task
	nextID int64
}

func newFakeTaskRepository() *fakeTaskRepository {
	return &fakeTaskRepository{tasks: map[int64]*models.Task{}, nextID: 1}
}

func (f *fakeTaskRepository) Create(task *models.Task) error {
	task.ID = f.nextID
	task.CreatedAt = time.Now()
	f.nextID++
	stored := *task
	f.tasks[task.ID] = &stored
	return nil
}

func (f *fakeTaskRepository) GetByID(ownerID, id int64) (*models.Task, error) {
	task, ok := f.tasks[id]
	if !ok || task.UserID != ownerID {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskRepository) List(ownerID int64, statusFilter, sortKey string) ([]*models.Task, error) {
	result := []*models.Task{}
	for _, task := range f.tasks {
		if task.UserID != ownerID {
			continue
		}
		if statusFilter != "" && task.Status != statusFilter {
			continue
		}
		copied := *task
		result = append(result, &copied)
	}
	return result, nil
}

func (f *fakeTaskRepository) Update(task *models.Task) error {
	stored, ok := f.tasks[task.ID]
	if !ok || stored.UserID != task.UserID {
		return sql.ErrNoRows
	}
	stored.Title = task.Title
	stored.Description = task.Description
	stored.DueDate = task.DueDate
	task.Status = stored.Status
	task.CreatedAt = stored.CreatedAt
	return nil
}

func (f *fakeTaskRepository) UpdateStatus(ownerID, id int64, status string) (*models.Task, error) {
	stored, ok := f.tasks[id]
	if !ok || stored.UserID != ownerID {
		return nil, nil
	}
	stored.Status = status
	copied := *stored
	return &copied, nil
}

func (f *fakeTaskRepository) Delete(ownerID, id int64) error {
	stored, ok := f.tasks[id]
	if !ok || stored.UserID != ownerID {
		return sql.ErrNoRows
	}
	delete(f.tasks, id)
	return nil
}

// testServer bundles a router over in-memory stores with the production
// route layout and middleware chain.
type testServer struct {
	router      *gin.Engine
	codec       *token.Codec
	authService service.AuthService
	taskService service.TaskService
	userRepo    *fakeUserRepository
	taskRepo    *fakeTaskRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	log := logrus.New()

	userRepo := newFakeUserRepository()
	taskRepo := newFakeTaskRepository()
	codec := token.NewCodec("test-secret", time.Hour)
	authService := service.NewAuthService(userRepo, codec, logger)
	taskService := service.NewTaskService(taskRepo, logger)

	authHandler := NewAuthHandler(authService, log)
	taskHandler := NewTaskHandler(taskService, logger)
	ai := aiclient.NewClient(aiclient.Config{}, logger)
	adviceHandler := NewAdviceHandler(ai, log)
	fortuneHandler := NewFortuneHandler(ai, log)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/auth/login", authHandler.Login)
	api.POST("/bmi/advice", adviceHandler.GenerateBMIAdvice)
	api.POST("/fortune/generate", fortuneHandler.Generate)

	authRequired := api.Group("")
	authRequired.Use(middleware.RequireAuth(codec, userRepo, logger))
	{
		authRequired.GET("/auth/me", authHandler.Me)
		authRequired.POST("/auth/change-password", authHandler.ChangePassword)

		authRequired.GET("/tasks", taskHandler.List)
		authRequired.POST("/tasks", taskHandler.Create)
		authRequired.GET("/tasks/:id", taskHandler.Get)
		authRequired.PUT("/tasks/:id", taskHandler.Update)
		authRequired.PATCH("/tasks/:id/status", taskHandler.UpdateStatus)
		authRequired.DELETE("/tasks/:id", taskHandler.Delete)

		adminRequired := authRequired.Group("")
		adminRequired.Use(middleware.RequireRole(models.RoleAdmin))
		{
			adminRequired.POST("/auth/users", authHandler.CreateUser)
		}
	}

	return &testServer{
		router:      router,
		codec:       codec,
		authService: authService,
		taskService: taskService,
		userRepo:    userRepo,
		taskRepo:    taskRepo,
	}
}

// seedUser registers a user and returns it with a valid bearer token.
func (ts *testServer) seedUser(t *testing.T, username, password, role string) (*models.User, string) {
	t.Helper()
	user, err := ts.authService.CreateUser(username, password, role)
	require.NoError(t, err)
	tokenString, _, err := ts.codec.Issue(user)
	require.NoError(t, err)
	return user, tokenString
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}
