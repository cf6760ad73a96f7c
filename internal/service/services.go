package service

import (
	"context"
	"io"

	"github.com/cartagena-corp/lm-comments/internal/auth"
	"github.com/cartagena-corp/lm-comments/internal/client"
	"github.com/cartagena-corp/lm-comments/internal/config"
	"github.com/cartagena-corp/lm-comments/internal/metrics"
	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/cartagena-corp/lm-comments/internal/repository"
	"github.com/cartagena-corp/lm-comments/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CommentService defines the comment and response workflow
type CommentService interface {
	CreateComment(ctx context.Context, id auth.Identity, req *models.CreateCommentRequest) (*models.Comment, error)
	ListComments(ctx context.Context, id auth.Identity, issueID uuid.UUID, page models.PageRequest) (*models.Page[*models.Comment], error)
	GetComment(ctx context.Context, id auth.Identity, commentID uuid.UUID) (*models.Comment, error)
	DeleteComment(ctx context.Context, id auth.Identity, commentID uuid.UUID) error
	DeleteCommentsByIssue(ctx context.Context, id auth.Identity, issueID uuid.UUID) (int, error)
	AddResponse(ctx context.Context, id auth.Identity, req *models.CreateResponseRequest) (*models.Response, error)
	ListResponses(ctx context.Context, id auth.Identity, commentID uuid.UUID) ([]*models.Response, error)
	DeleteResponse(ctx context.Context, id auth.Identity, responseID uuid.UUID) error
}

// JanitorService defines the background sweep of orphaned uploads
type JanitorService interface {
	Start(ctx context.Context)
	Stop()
	Sweep(ctx context.Context) (int, error)
}

// IssueValidator checks issues against the issue service
type IssueValidator interface {
	IssueExists(ctx context.Context, issueID uuid.UUID, token string) client.Verdict
	IssueAccess(ctx context.Context, issueID uuid.UUID, token string) client.Verdict
}

// UserDirectory resolves user display data; failures yield an empty result
type UserDirectory interface {
	UsersBasicData(ctx context.Context, token string, ids []uuid.UUID) []models.UserBasic
}

// FileStorage persists attachment payloads
type FileStorage interface {
	Save(originalName string, r io.Reader) (storage.StoredFile, error)
	Remove(name string) error
	List() ([]storage.FileInfo, error)
}

// Dependencies are the collaborators the services are built from
type Dependencies struct {
	Repos   *repository.Repositories
	Issues  IssueValidator
	Users   UserDirectory
	Files   FileStorage
	Metrics *metrics.Metrics
}

// Services holds all service interfaces
type Services struct {
	Comment CommentService
	Janitor JanitorService
}

// NewServices creates all services
func NewServices(deps Dependencies, cfg *config.Config, log zerolog.Logger) *Services {
	return &Services{
		Comment: newCommentService(deps.Repos, deps.Issues, deps.Users, deps.Files, deps.Metrics, log),
		Janitor: newJanitor(deps.Files, deps.Repos.Attachment, cfg.Janitor, deps.Metrics, log),
	}
}
