package repository

import (
	"context"
	"database/sql"

	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const responseColumns = `id, comment_id, user_id, text, created_at`

// responseRepo is the concrete implementation of ResponseRepository
type responseRepo struct {
	db DBTX
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db DBTX) ResponseRepository {
	return &responseRepo{db: db}
}

// Save upserts a response; only the text is mutable
func (r *responseRepo) Save(ctx context.Context, response *models.Response) error {
	query := `
		INSERT INTO comment_responses (id, comment_id, user_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text
	`
	_, err := r.db.ExecContext(ctx, query,
		response.ID, response.CommentID, response.UserID, response.Text, response.CreatedAt,
	)
	return err
}

// GetByID retrieves a response by ID, nil when absent
func (r *responseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Response, error) {
	query := `SELECT ` + responseColumns + ` FROM comment_responses WHERE id = $1`

	var response models.Response
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&response.ID, &response.CommentID, &response.UserID, &response.Text, &response.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// ListByComment returns a comment's responses in conversation order
func (r *responseRepo) ListByComment(ctx context.Context, commentID uuid.UUID) ([]*models.Response, error) {
	query := `SELECT ` + responseColumns + ` FROM comment_responses WHERE comment_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := make([]*models.Response, 0)
	for rows.Next() {
		var response models.Response
		if err := rows.Scan(
			&response.ID, &response.CommentID, &response.UserID, &response.Text, &response.CreatedAt,
		); err != nil {
			return nil, err
		}
		responses = append(responses, &response)
	}
	return responses, rows.Err()
}

// CountByCommentIDs counts responses per comment in a single round trip.
// Comments without responses are absent from the result.
func (r *responseRepo) CountByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(commentIDs))
	if len(commentIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT comment_id, COUNT(*)
		FROM comment_responses
		WHERE comment_id = ANY($1::uuid[])
		GROUP BY comment_id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(uuidStrings(commentIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// Delete removes one response and reports whether it existed
func (r *responseRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comment_responses WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteByComment removes every response of a comment
func (r *responseRepo) DeleteByComment(ctx context.Context, commentID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comment_responses WHERE comment_id = $1`, commentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
