package repository

import (
	"context"
	"database/sql"

	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/google/uuid"
)

const commentColumns = `id, issue_id, user_id, text, created_at, organization_id`

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db DBTX
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db DBTX) CommentRepository {
	return &commentRepo{db: db}
}

// Save upserts a comment. issue, author and creation time are fixed at insert.
func (r *commentRepo) Save(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comment (id, issue_id, user_id, text, created_at, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET text = EXCLUDED.text, organization_id = EXCLUDED.organization_id
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.IssueID, comment.UserID, comment.Text,
		comment.CreatedAt, comment.OrganizationID,
	)
	return err
}

// GetByID retrieves a comment by ID, nil when absent
func (r *commentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comment WHERE id = $1`

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListByIssue returns one page of an issue's comments and the issue's total comment count
func (r *commentRepo) ListByIssue(ctx context.Context, issueID uuid.UUID, page models.PageRequest) ([]*models.Comment, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comment WHERE issue_id = $1`, issueID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*models.Comment{}, 0, nil
	}

	order := `created_at DESC, id DESC`
	if page.Ascending {
		order = `created_at ASC, id ASC`
	}
	query := `SELECT ` + commentColumns + ` FROM comment WHERE issue_id = $1 ORDER BY ` + order + ` LIMIT $2 OFFSET $3`

	comments, err := r.query(ctx, query, issueID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// ListAllByIssue returns every comment of an issue, newest first
func (r *commentRepo) ListAllByIssue(ctx context.Context, issueID uuid.UUID) ([]*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comment WHERE issue_id = $1 ORDER BY created_at DESC, id DESC`
	return r.query(ctx, query, issueID)
}

// Delete removes a comment row and reports whether it existed
func (r *commentRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comment WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *commentRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var comment models.Comment
	err := row.Scan(
		&comment.ID, &comment.IssueID, &comment.UserID, &comment.Text,
		&comment.CreatedAt, &comment.OrganizationID,
	)
	if err != nil {
		return nil, err
	}
	comment.Attachments = []models.Attachment{}
	return &comment, nil
}
