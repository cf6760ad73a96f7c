package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/cartagena-corp/lm-comments/internal/repository"
	"github.com/google/uuid"
)

// MockStore is an in-memory backing store shared by the mock repositories,
// so a mock transaction can restore all three tables at once.
type MockStore struct {
	mu          sync.Mutex
	Comments    map[uuid.UUID]*models.Comment
	Responses   map[uuid.UUID]*models.Response
	Attachments map[uuid.UUID]models.Attachment

	SaveCommentError    error
	SaveResponseError   error
	SaveAttachmentError error
	DeleteCommentError  error
	CountError          error

	CountCalls int
	TxCalls    int
	Commits    int
	Rollbacks  int
}

// NewMockStore creates an empty store
func NewMockStore() *MockStore {
	return &MockStore{
		Comments:    make(map[uuid.UUID]*models.Comment),
		Responses:   make(map[uuid.UUID]*models.Response),
		Attachments: make(map[uuid.UUID]models.Attachment),
	}
}

// Repositories returns repositories backed by the store with a snapshotting transactor
func (s *MockStore) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Comment:    &MockCommentRepository{store: s},
		Response:   &MockResponseRepository{store: s},
		Attachment: &MockAttachmentRepository{store: s},
		Tx:         &MockTransactor{store: s},
	}
}

// AttachmentsOf returns the attachment rows of a comment
func (s *MockStore) AttachmentsOf(commentID uuid.UUID) []models.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachmentsOf(commentID)
}

func (s *MockStore) attachmentsOf(commentID uuid.UUID) []models.Attachment {
	var out []models.Attachment
	for _, a := range s.Attachments {
		if a.CommentID == commentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// MockTransactor snapshots the store and restores it when the unit of work fails
type MockTransactor struct {
	store *MockStore
}

func (t *MockTransactor) WithinTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	s := t.store

	s.mu.Lock()
	s.TxCalls++
	comments := make(map[uuid.UUID]*models.Comment, len(s.Comments))
	for k, v := range s.Comments {
		comments[k] = v
	}
	responses := make(map[uuid.UUID]*models.Response, len(s.Responses))
	for k, v := range s.Responses {
		responses[k] = v
	}
	attachments := make(map[uuid.UUID]models.Attachment, len(s.Attachments))
	for k, v := range s.Attachments {
		attachments[k] = v
	}
	s.mu.Unlock()

	repos := &repository.Repositories{
		Comment:    &MockCommentRepository{store: s},
		Response:   &MockResponseRepository{store: s},
		Attachment: &MockAttachmentRepository{store: s},
	}
	repos.Tx = joined{repos: repos}

	if err := fn(repos); err != nil {
		s.mu.Lock()
		s.Comments, s.Responses, s.Attachments = comments, responses, attachments
		s.Rollbacks++
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.Commits++
	s.mu.Unlock()
	return nil
}

type joined struct {
	repos *repository.Repositories
}

func (j joined) WithinTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	return fn(j.repos)
}

// MockCommentRepository is a mock implementation of CommentRepository
type MockCommentRepository struct {
	store *MockStore
}

func (m *MockCommentRepository) Save(ctx context.Context, comment *models.Comment) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveCommentError != nil {
		return s.SaveCommentError
	}
	stored := *comment
	if existing, ok := s.Comments[comment.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	stored.Attachments = nil
	stored.User = nil
	s.Comments[comment.ID] = &stored
	return nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Comments[id]
	if !ok {
		return nil, nil
	}
	out := *c
	out.Attachments = []models.Attachment{}
	return &out, nil
}

func (m *MockCommentRepository) ListByIssue(ctx context.Context, issueID uuid.UUID, page models.PageRequest) ([]*models.Comment, int64, error) {
	all, _ := m.ListAllByIssue(ctx, issueID)
	if page.Ascending {
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
	}

	total := int64(len(all))
	start := page.Offset()
	if start >= len(all) {
		return []*models.Comment{}, total, nil
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// ListAllByIssue orders newest first, ties broken by id
func (m *MockCommentRepository) ListAllByIssue(ctx context.Context, issueID uuid.UUID) ([]*models.Comment, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Comment
	for _, c := range s.Comments {
		if c.IssueID == issueID {
			cp := *c
			cp.Attachments = []models.Attachment{}
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (m *MockCommentRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteCommentError != nil {
		return false, s.DeleteCommentError
	}
	if _, ok := s.Comments[id]; !ok {
		return false, nil
	}
	delete(s.Comments, id)
	return true, nil
}

// MockResponseRepository is a mock implementation of ResponseRepository
type MockResponseRepository struct {
	store *MockStore
}

func (m *MockResponseRepository) Save(ctx context.Context, response *models.Response) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveResponseError != nil {
		return s.SaveResponseError
	}
	stored := *response
	stored.User = nil
	s.Responses[response.ID] = &stored
	return nil
}

func (m *MockResponseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Response, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.Responses[id]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

// ListByComment orders oldest first
func (m *MockResponseRepository) ListByComment(ctx context.Context, commentID uuid.UUID) ([]*models.Response, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Response
	for _, r := range s.Responses {
		if r.CommentID == commentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockResponseRepository) CountByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CountCalls++
	if s.CountError != nil {
		return nil, s.CountError
	}

	wanted := make(map[uuid.UUID]bool, len(commentIDs))
	for _, id := range commentIDs {
		wanted[id] = true
	}
	counts := make(map[uuid.UUID]int)
	for _, r := range s.Responses {
		if wanted[r.CommentID] {
			counts[r.CommentID]++
		}
	}
	return counts, nil
}

func (m *MockResponseRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Responses[id]; !ok {
		return false, nil
	}
	delete(s.Responses, id)
	return true, nil
}

func (m *MockResponseRepository) DeleteByComment(ctx context.Context, commentID uuid.UUID) (int64, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.Responses {
		if r.CommentID == commentID {
			delete(s.Responses, id)
			n++
		}
	}
	return n, nil
}

// MockAttachmentRepository is a mock implementation of AttachmentRepository
type MockAttachmentRepository struct {
	store *MockStore
}

func (m *MockAttachmentRepository) Save(ctx context.Context, attachment *models.Attachment) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveAttachmentError != nil {
		return s.SaveAttachmentError
	}
	s.Attachments[attachment.ID] = *attachment
	return nil
}

func (m *MockAttachmentRepository) ListByComment(ctx context.Context, commentID uuid.UUID) ([]models.Attachment, error) {
	return m.store.AttachmentsOf(commentID), nil
}

func (m *MockAttachmentRepository) ListByComments(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID][]models.Attachment, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID][]models.Attachment)
	for _, id := range commentIDs {
		if list := s.attachmentsOf(id); len(list) > 0 {
			out[id] = list
		}
	}
	return out, nil
}

func (m *MockAttachmentRepository) DeleteByComment(ctx context.Context, commentID uuid.UUID) (int64, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.Attachments {
		if a.CommentID == commentID {
			delete(s.Attachments, id)
			n++
		}
	}
	return n, nil
}

func (m *MockAttachmentRepository) ExistingFileNames(ctx context.Context, names []string) (map[string]bool, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	out := make(map[string]bool)
	for _, a := range s.Attachments {
		if wanted[a.FileName] {
			out[a.FileName] = true
		}
	}
	return out, nil
}

// Verify interface compliance
var (
	_ repository.CommentRepository    = (*MockCommentRepository)(nil)
	_ repository.ResponseRepository   = (*MockResponseRepository)(nil)
	_ repository.AttachmentRepository = (*MockAttachmentRepository)(nil)
	_ repository.Transactor           = (*MockTransactor)(nil)
)
