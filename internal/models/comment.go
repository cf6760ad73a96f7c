package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxTextLength is the maximum number of characters in a comment or response body
const MaxTextLength = 1000

// Comment represents a top-level note attached to an issue
type Comment struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	IssueID        uuid.UUID    `json:"issueId" db:"issue_id"`
	UserID         uuid.UUID    `json:"userId" db:"user_id"`
	Text           string       `json:"text" db:"text"`
	CreatedAt      time.Time    `json:"createdAt" db:"created_at"`
	OrganizationID *uuid.UUID   `json:"organizationId,omitempty" db:"organization_id"`
	Attachments    []Attachment `json:"attachments"`
	ResponsesCount int          `json:"responsesCount"`
	User           *UserBasic   `json:"user,omitempty"`
}

// Response represents a threaded reply to a comment
type Response struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CommentID uuid.UUID  `json:"commentId" db:"comment_id"`
	UserID    uuid.UUID  `json:"userId" db:"user_id"`
	Text      string     `json:"text" db:"text"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	User      *UserBasic `json:"user,omitempty"`
}

// CreateCommentRequest carries the client supplied fields of a new comment.
// Author, timestamps and organization are always assigned server side.
type CreateCommentRequest struct {
	IssueID uuid.UUID
	Text    string
	Files   []Upload
}

// CreateResponseRequest carries the client supplied fields of a new response
type CreateResponseRequest struct {
	CommentID uuid.UUID `json:"commentId"`
	Text      string    `json:"text"`
}
