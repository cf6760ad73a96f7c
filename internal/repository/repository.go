package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cartagena-corp/lm-comments/internal/database"
	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/google/uuid"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	// Save inserts the comment or updates its mutable fields when the id exists
	Save(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListByIssue(ctx context.Context, issueID uuid.UUID, page models.PageRequest) ([]*models.Comment, int64, error)
	ListAllByIssue(ctx context.Context, issueID uuid.UUID) ([]*models.Comment, error)
	// Delete removes the comment row only; children must already be gone
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// ResponseRepository defines the interface for response data operations
type ResponseRepository interface {
	Save(ctx context.Context, response *models.Response) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Response, error)
	ListByComment(ctx context.Context, commentID uuid.UUID) ([]*models.Response, error)
	CountByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID]int, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByComment(ctx context.Context, commentID uuid.UUID) (int64, error)
}

// AttachmentRepository defines the interface for attachment data operations
type AttachmentRepository interface {
	Save(ctx context.Context, attachment *models.Attachment) error
	ListByComment(ctx context.Context, commentID uuid.UUID) ([]models.Attachment, error)
	ListByComments(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID][]models.Attachment, error)
	DeleteByComment(ctx context.Context, commentID uuid.UUID) (int64, error)
	// ExistingFileNames returns the subset of names referenced by an attachment row
	ExistingFileNames(ctx context.Context, names []string) (map[string]bool, error)
}

// Transactor runs a unit of work against repositories bound to one transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos *Repositories) error) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Comment    CommentRepository
	Response   ResponseRepository
	Attachment AttachmentRepository
	Tx         Transactor
}

// WithinTx runs fn inside a transaction; fn's error rolls it back
func (r *Repositories) WithinTx(ctx context.Context, fn func(repos *Repositories) error) error {
	if r.Tx == nil {
		return fn(r)
	}
	return r.Tx.WithinTx(ctx, fn)
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	repos := bind(db.DB)
	repos.Tx = &sqlTransactor{db: db}
	return repos
}

func bind(q DBTX) *Repositories {
	return &Repositories{
		Comment:    NewCommentRepo(q),
		Response:   NewResponseRepo(q),
		Attachment: NewAttachmentRepo(q),
	}
}

// sqlTransactor begins a *sql.Tx per unit of work
type sqlTransactor struct {
	db *database.DB
}

func (t *sqlTransactor) WithinTx(ctx context.Context, fn func(repos *Repositories) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Nested WithinTx calls reuse the same transaction
	repos := bind(tx)
	repos.Tx = joinedTx{repos: repos}

	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// joinedTx hands the enclosing transaction's repositories to nested units
type joinedTx struct {
	repos *Repositories
}

func (j joinedTx) WithinTx(ctx context.Context, fn func(repos *Repositories) error) error {
	return fn(j.repos)
}
