package mocks

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/cartagena-corp/lm-comments/internal/auth"
	"github.com/cartagena-corp/lm-comments/internal/client"
	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/cartagena-corp/lm-comments/internal/service"
	"github.com/cartagena-corp/lm-comments/internal/storage"
	"github.com/google/uuid"
)

// MockIssueValidator answers issue checks with fixed verdicts
type MockIssueValidator struct {
	Exists      client.Verdict
	Access      client.Verdict
	ExistsCalls int
	AccessCalls int
	Tokens      []string
}

var _ service.IssueValidator = (*MockIssueValidator)(nil)

// NewMockIssueValidator allows every issue
func NewMockIssueValidator() *MockIssueValidator {
	return &MockIssueValidator{Exists: client.Allowed, Access: client.Allowed}
}

func (m *MockIssueValidator) IssueExists(ctx context.Context, issueID uuid.UUID, token string) client.Verdict {
	m.ExistsCalls++
	m.Tokens = append(m.Tokens, token)
	return m.Exists
}

func (m *MockIssueValidator) IssueAccess(ctx context.Context, issueID uuid.UUID, token string) client.Verdict {
	m.AccessCalls++
	m.Tokens = append(m.Tokens, token)
	return m.Access
}

// MockUserDirectory returns the known users among the requested ids
type MockUserDirectory struct {
	Users     map[uuid.UUID]models.UserBasic
	Fail      bool
	Calls     int
	Requested [][]uuid.UUID
}

var _ service.UserDirectory = (*MockUserDirectory)(nil)

func NewMockUserDirectory(users ...models.UserBasic) *MockUserDirectory {
	m := &MockUserDirectory{Users: make(map[uuid.UUID]models.UserBasic)}
	for _, u := range users {
		m.Users[u.ID] = u
	}
	return m
}

func (m *MockUserDirectory) UsersBasicData(ctx context.Context, token string, ids []uuid.UUID) []models.UserBasic {
	if len(ids) == 0 {
		return []models.UserBasic{}
	}
	m.Calls++
	m.Requested = append(m.Requested, ids)
	if m.Fail {
		return []models.UserBasic{}
	}
	out := make([]models.UserBasic, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

// MockFileStorage keeps uploads in memory
type MockFileStorage struct {
	mu       sync.Mutex
	BaseURL  string
	Files    map[string][]byte
	ModTimes map[string]time.Time
	Removed  []string

	// FailOnSave fails the n-th Save call (1-based); zero never fails
	FailOnSave int
	// FailRemove makes Remove fail for these names
	FailRemove map[string]bool
	ListError  error

	saves int
}

var _ service.FileStorage = (*MockFileStorage)(nil)

func NewMockFileStorage() *MockFileStorage {
	return &MockFileStorage{
		BaseURL:    "http://localhost:8080/uploads/",
		Files:      make(map[string][]byte),
		ModTimes:   make(map[string]time.Time),
		FailRemove: make(map[string]bool),
	}
}

func (m *MockFileStorage) Save(originalName string, r io.Reader) (storage.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.FailOnSave > 0 && m.saves == m.FailOnSave {
		return storage.StoredFile{}, &storage.Error{Op: "write", Name: originalName, Err: errors.New("disk full")}
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return storage.StoredFile{}, &storage.Error{Op: "write", Name: originalName, Err: err}
	}
	name := uuid.NewString() + "_" + originalName
	m.Files[name] = body
	m.ModTimes[name] = time.Now()
	return storage.StoredFile{Name: name, URL: m.BaseURL + name}, nil
}

func (m *MockFileStorage) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Removed = append(m.Removed, name)
	if m.FailRemove[name] {
		return &storage.Error{Op: "remove", Name: name, Err: errors.New("permission denied")}
	}
	delete(m.Files, name)
	delete(m.ModTimes, name)
	return nil
}

func (m *MockFileStorage) List() ([]storage.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}
	out := make([]storage.FileInfo, 0, len(m.Files))
	for name := range m.Files {
		out = append(out, storage.FileInfo{Name: name, ModTime: m.ModTimes[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Put stores a file directly, as if left behind by an earlier process
func (m *MockFileStorage) Put(name string, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[name] = []byte("orphan")
	m.ModTimes[name] = modTime
}

// MockCommentService is a mock implementation of CommentService
type MockCommentService struct {
	CreateCommentFunc         func(ctx context.Context, id auth.Identity, req *models.CreateCommentRequest) (*models.Comment, error)
	ListCommentsFunc          func(ctx context.Context, id auth.Identity, issueID uuid.UUID, page models.PageRequest) (*models.Page[*models.Comment], error)
	GetCommentFunc            func(ctx context.Context, id auth.Identity, commentID uuid.UUID) (*models.Comment, error)
	DeleteCommentFunc         func(ctx context.Context, id auth.Identity, commentID uuid.UUID) error
	DeleteCommentsByIssueFunc func(ctx context.Context, id auth.Identity, issueID uuid.UUID) (int, error)
	AddResponseFunc           func(ctx context.Context, id auth.Identity, req *models.CreateResponseRequest) (*models.Response, error)
	ListResponsesFunc         func(ctx context.Context, id auth.Identity, commentID uuid.UUID) ([]*models.Response, error)
	DeleteResponseFunc        func(ctx context.Context, id auth.Identity, responseID uuid.UUID) error

	// Identities seen by any call, in order
	Identities []auth.Identity
	// LastPage is the page request passed to ListComments
	LastPage models.PageRequest
}

var _ service.CommentService = (*MockCommentService)(nil)

func NewMockCommentService() *MockCommentService {
	return &MockCommentService{}
}

func (m *MockCommentService) CreateComment(ctx context.Context, id auth.Identity, req *models.CreateCommentRequest) (*models.Comment, error) {
	m.Identities = append(m.Identities, id)
	if m.CreateCommentFunc != nil {
		return m.CreateCommentFunc(ctx, id, req)
	}
	return &models.Comment{
		ID:          uuid.New(),
		IssueID:     req.IssueID,
		UserID:      id.UserID,
		Text:        req.Text,
		CreatedAt:   time.Now().UTC(),
		Attachments: []models.Attachment{},
	}, nil
}

func (m *MockCommentService) ListComments(ctx context.Context, id auth.Identity, issueID uuid.UUID, page models.PageRequest) (*models.Page[*models.Comment], error) {
	m.Identities = append(m.Identities, id)
	m.LastPage = page
	if m.ListCommentsFunc != nil {
		return m.ListCommentsFunc(ctx, id, issueID, page)
	}
	p := models.NewPage[*models.Comment](nil, 0, page.Normalize())
	return &p, nil
}

func (m *MockCommentService) GetComment(ctx context.Context, id auth.Identity, commentID uuid.UUID) (*models.Comment, error) {
	m.Identities = append(m.Identities, id)
	if m.GetCommentFunc != nil {
		return m.GetCommentFunc(ctx, id, commentID)
	}
	return nil, service.NotFound(service.MsgCommentNotFound)
}

func (m *MockCommentService) DeleteComment(ctx context.Context, id auth.Identity, commentID uuid.UUID) error {
	m.Identities = append(m.Identities, id)
	if m.DeleteCommentFunc != nil {
		return m.DeleteCommentFunc(ctx, id, commentID)
	}
	return nil
}

func (m *MockCommentService) DeleteCommentsByIssue(ctx context.Context, id auth.Identity, issueID uuid.UUID) (int, error) {
	m.Identities = append(m.Identities, id)
	if m.DeleteCommentsByIssueFunc != nil {
		return m.DeleteCommentsByIssueFunc(ctx, id, issueID)
	}
	return 0, nil
}

func (m *MockCommentService) AddResponse(ctx context.Context, id auth.Identity, req *models.CreateResponseRequest) (*models.Response, error) {
	m.Identities = append(m.Identities, id)
	if m.AddResponseFunc != nil {
		return m.AddResponseFunc(ctx, id, req)
	}
	return &models.Response{
		ID:        uuid.New(),
		CommentID: req.CommentID,
		UserID:    id.UserID,
		Text:      req.Text,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (m *MockCommentService) ListResponses(ctx context.Context, id auth.Identity, commentID uuid.UUID) ([]*models.Response, error) {
	m.Identities = append(m.Identities, id)
	if m.ListResponsesFunc != nil {
		return m.ListResponsesFunc(ctx, id, commentID)
	}
	return []*models.Response{}, nil
}

func (m *MockCommentService) DeleteResponse(ctx context.Context, id auth.Identity, responseID uuid.UUID) error {
	m.Identities = append(m.Identities, id)
	if m.DeleteResponseFunc != nil {
		return m.DeleteResponseFunc(ctx, id, responseID)
	}
	return nil
}
