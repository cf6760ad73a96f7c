package validation

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors collects field failures for one request
type Errors []ValidationError

func (errs Errors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Err returns nil when no failure was collected
func (errs Errors) Err() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// InvalidUUIDMessage is rendered for malformed identifiers
const InvalidUUIDMessage = "Invalid uuid"

// Validator checks comment and response input
type Validator struct {
	policy *bluemonday.Policy
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{policy: bluemonday.StrictPolicy()}
}

// ParseID parses an identifier taken from a path segment or form field
func ParseID(field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, ValidationError{Field: field, Message: field + " is required"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ValidationError{Field: field, Message: InvalidUUIDMessage, Value: raw}
	}
	return id, nil
}

// ValidateText trims and strips markup from a comment or response body.
// The cleaned text is what gets persisted.
func (v *Validator) ValidateText(field, text string) (string, *ValidationError) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ValidationError{Field: field, Message: field + " is required"}
	}
	if n := utf8.RuneCountInString(text); n > models.MaxTextLength {
		return "", &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at most %d characters", field, models.MaxTextLength),
			Value:   n,
		}
	}

	// StrictPolicy escapes what it keeps; undo that so plain "<" or "&" survive
	cleaned := strings.TrimSpace(html.UnescapeString(v.policy.Sanitize(text)))
	if cleaned == "" {
		return "", &ValidationError{Field: field, Message: field + " has no text content"}
	}
	return cleaned, nil
}

// ValidateComment validates a create comment request in place
func (v *Validator) ValidateComment(req *models.CreateCommentRequest) Errors {
	var errs Errors

	if req.IssueID == uuid.Nil {
		errs = append(errs, ValidationError{Field: "issueId", Message: "issueId is required"})
	}
	if text, verr := v.ValidateText("text", req.Text); verr != nil {
		errs = append(errs, *verr)
	} else {
		req.Text = text
	}
	for i, f := range req.Files {
		if f.Open == nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("files[%d]", i), Message: "file has no content", Value: f.Name})
		}
	}

	return errs
}

// ValidateResponse validates an add response request in place
func (v *Validator) ValidateResponse(req *models.CreateResponseRequest) Errors {
	var errs Errors

	if req.CommentID == uuid.Nil {
		errs = append(errs, ValidationError{Field: "commentId", Message: "commentId is required"})
	}
	if text, verr := v.ValidateText("text", req.Text); verr != nil {
		errs = append(errs, *verr)
	} else {
		req.Text = text
	}

	return errs
}
