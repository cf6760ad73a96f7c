package repository

import (
	"context"

	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// attachmentRepo is the concrete implementation of AttachmentRepository
type attachmentRepo struct {
	db DBTX
}

// NewAttachmentRepo creates a new attachment repository
func NewAttachmentRepo(db DBTX) AttachmentRepository {
	return &attachmentRepo{db: db}
}

// Save upserts an attachment record
func (r *attachmentRepo) Save(ctx context.Context, attachment *models.Attachment) error {
	query := `
		INSERT INTO file_attachment (id, comment_id, file_name, file_url, position)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET file_name = EXCLUDED.file_name, file_url = EXCLUDED.file_url, position = EXCLUDED.position
	`
	_, err := r.db.ExecContext(ctx, query,
		attachment.ID, attachment.CommentID, attachment.FileName, attachment.FileURL, attachment.Position,
	)
	return err
}

// ListByComment returns a comment's attachments in upload order
func (r *attachmentRepo) ListByComment(ctx context.Context, commentID uuid.UUID) ([]models.Attachment, error) {
	byComment, err := r.ListByComments(ctx, []uuid.UUID{commentID})
	if err != nil {
		return nil, err
	}
	if attachments := byComment[commentID]; attachments != nil {
		return attachments, nil
	}
	return []models.Attachment{}, nil
}

// ListByComments loads the attachments of several comments in one query
func (r *attachmentRepo) ListByComments(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID][]models.Attachment, error) {
	result := make(map[uuid.UUID][]models.Attachment, len(commentIDs))
	if len(commentIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, comment_id, file_name, file_url, position
		FROM file_attachment
		WHERE comment_id = ANY($1::uuid[])
		ORDER BY comment_id, position, id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(uuidStrings(commentIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.CommentID, &a.FileName, &a.FileURL, &a.Position); err != nil {
			return nil, err
		}
		result[a.CommentID] = append(result[a.CommentID], a)
	}
	return result, rows.Err()
}

// DeleteByComment removes every attachment row of a comment
func (r *attachmentRepo) DeleteByComment(ctx context.Context, commentID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM file_attachment WHERE comment_id = $1`, commentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExistingFileNames reports which of the given stored names still have a record
func (r *attachmentRepo) ExistingFileNames(ctx context.Context, names []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(names))
	if len(names) == 0 {
		return existing, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT file_name FROM file_attachment WHERE file_name = ANY($1)`, pq.Array(names))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		existing[name] = true
	}
	return existing, rows.Err()
}
