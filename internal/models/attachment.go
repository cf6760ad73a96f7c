package models

import (
	"io"

	"github.com/google/uuid"
)

// Attachment is an uploaded file owned by a comment
type Attachment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CommentID uuid.UUID `json:"commentId" db:"comment_id"`
	FileName  string    `json:"fileName" db:"file_name"`
	FileURL   string    `json:"fileUrl" db:"file_url"`
	// Position is the upload index within the comment
	Position int `json:"-" db:"position"`
}

// Upload is a single file received with a create-comment request
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}
