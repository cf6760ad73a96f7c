package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cartagena-corp/lm-comments/internal/auth"
	"github.com/cartagena-corp/lm-comments/internal/client"
	"github.com/cartagena-corp/lm-comments/internal/metrics"
	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/cartagena-corp/lm-comments/internal/repository"
	"github.com/cartagena-corp/lm-comments/internal/storage"
	"github.com/cartagena-corp/lm-comments/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// commentService is the concrete implementation of CommentService
type commentService struct {
	repos     *repository.Repositories
	issues    IssueValidator
	users     UserDirectory
	files     FileStorage
	validator *validation.Validator
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

func newCommentService(repos *repository.Repositories, issues IssueValidator, users UserDirectory, files FileStorage, m *metrics.Metrics, log zerolog.Logger) *commentService {
	return &commentService{
		repos:     repos,
		issues:    issues,
		users:     users,
		files:     files,
		validator: validation.NewValidator(),
		metrics:   m,
		log:       log.With().Str("service", "comment").Logger(),
		now:       time.Now,
	}
}

// CreateComment validates the issue, then stores the comment and its files in one transaction
func (s *commentService) CreateComment(ctx context.Context, id auth.Identity, req *models.CreateCommentRequest) (*models.Comment, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	if errs := s.validator.ValidateComment(req); len(errs) > 0 {
		return nil, Validation(errs.Error(), errs)
	}

	if err := s.requireIssueExists(ctx, id, req.IssueID); err != nil {
		return nil, err
	}
	if err := s.requireIssueAccess(ctx, id, req.IssueID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:             uuid.New(),
		IssueID:        req.IssueID,
		UserID:         id.UserID,
		Text:           req.Text,
		CreatedAt:      s.now().UTC(),
		OrganizationID: id.OrganizationID,
		Attachments:    []models.Attachment{},
	}

	var written []string
	err := s.repos.WithinTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.Comment.Save(ctx, comment); err != nil {
			return err
		}
		for i, upload := range req.Files {
			attachment, err := s.storeUpload(ctx, tx, comment.ID, i, upload, &written)
			if err != nil {
				return err
			}
			comment.Attachments = append(comment.Attachments, attachment)
		}
		return nil
	})
	if err != nil {
		s.discardFiles(written)

		var storageErr *storage.Error
		if errors.As(err, &storageErr) {
			s.log.Error().Err(err).Str("issue_id", req.IssueID.String()).Msg("Failed to store comment attachments")
			return nil, Storage(MsgFilesNotSaved, err)
		}
		s.log.Error().Err(err).Str("issue_id", req.IssueID.String()).Msg("Failed to create comment")
		return nil, Internal(err)
	}

	s.metrics.CommentCreated(len(comment.Attachments))
	s.log.Info().
		Str("comment_id", comment.ID.String()).
		Str("issue_id", comment.IssueID.String()).
		Int("attachments", len(comment.Attachments)).
		Msg("Comment created")

	if users := s.lookupUsers(ctx, id, []uuid.UUID{comment.UserID}); len(users) > 0 {
		comment.User = users[comment.UserID]
	}
	return comment, nil
}

// storeUpload copies one file and records its attachment row
func (s *commentService) storeUpload(ctx context.Context, tx *repository.Repositories, commentID uuid.UUID, position int, upload models.Upload, written *[]string) (models.Attachment, error) {
	r, err := upload.Open()
	if err != nil {
		return models.Attachment{}, &storage.Error{Op: "open", Name: upload.Name, Err: err}
	}
	defer r.Close()

	stored, err := s.files.Save(upload.Name, r)
	if err != nil {
		return models.Attachment{}, err
	}
	*written = append(*written, stored.Name)

	attachment := models.Attachment{
		ID:        uuid.New(),
		CommentID: commentID,
		FileName:  stored.Name,
		FileURL:   stored.URL,
		Position:  position,
	}
	if err := tx.Attachment.Save(ctx, &attachment); err != nil {
		return models.Attachment{}, err
	}
	return attachment, nil
}

// ListComments returns one page of an issue's comments, newest first by default
func (s *commentService) ListComments(ctx context.Context, id auth.Identity, issueID uuid.UUID, page models.PageRequest) (*models.Page[*models.Comment], error) {
	if err := s.requireIssueAccess(ctx, id, issueID); err != nil {
		return nil, err
	}

	page = page.Normalize()
	comments, total, err := s.repos.Comment.ListByIssue(ctx, issueID, page)
	if err != nil {
		return nil, Internal(fmt.Errorf("failed to list comments: %w", err))
	}

	if err := s.enrichComments(ctx, id, comments); err != nil {
		return nil, err
	}

	result := models.NewPage(comments, total, page)
	return &result, nil
}

// GetComment returns a single comment with its attachments and response count
func (s *commentService) GetComment(ctx context.Context, id auth.Identity, commentID uuid.UUID) (*models.Comment, error) {
	comment, err := s.findComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireIssueAccess(ctx, id, comment.IssueID); err != nil {
		return nil, err
	}

	if err := s.enrichComments(ctx, id, []*models.Comment{comment}); err != nil {
		return nil, err
	}
	return comment, nil
}

// enrichComments attaches attachments, response counts and authors.
// Counts never depend on the user lookup succeeding.
func (s *commentService) enrichComments(ctx context.Context, id auth.Identity, comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	attachments, err := s.repos.Attachment.ListByComments(ctx, ids)
	if err != nil {
		return Internal(fmt.Errorf("failed to load attachments: %w", err))
	}
	counts, err := s.repos.Response.CountByCommentIDs(ctx, ids)
	if err != nil {
		return Internal(fmt.Errorf("failed to count responses: %w", err))
	}
	for _, c := range comments {
		c.Attachments = attachments[c.ID]
		if c.Attachments == nil {
			c.Attachments = []models.Attachment{}
		}
		c.ResponsesCount = counts[c.ID]
	}

	authors := make([]uuid.UUID, len(comments))
	for i, c := range comments {
		authors[i] = c.UserID
	}
	users := s.lookupUsers(ctx, id, authors)
	for _, c := range comments {
		c.User = users[c.UserID]
	}
	return nil
}

// DeleteComment removes a comment, its responses and attachment rows, then its files
func (s *commentService) DeleteComment(ctx context.Context, id auth.Identity, commentID uuid.UUID) error {
	comment, err := s.findComment(ctx, commentID)
	if err != nil {
		return err
	}
	if err := s.requireIssueAccess(ctx, id, comment.IssueID); err != nil {
		return err
	}
	return s.deleteComment(ctx, comment.ID)
}

// DeleteCommentsByIssue removes every comment of an issue and returns how many went away
func (s *commentService) DeleteCommentsByIssue(ctx context.Context, id auth.Identity, issueID uuid.UUID) (int, error) {
	if err := s.requireIssueAccess(ctx, id, issueID); err != nil {
		return 0, err
	}

	comments, err := s.repos.Comment.ListAllByIssue(ctx, issueID)
	if err != nil {
		return 0, Internal(fmt.Errorf("failed to list comments: %w", err))
	}

	deleted := 0
	for _, c := range comments {
		if err := s.deleteComment(ctx, c.ID); err != nil {
			// Removed concurrently
			if IsNotFound(err) {
				continue
			}
			return deleted, err
		}
		deleted++
	}

	s.log.Info().Str("issue_id", issueID.String()).Int("deleted", deleted).Msg("Issue comments deleted")
	return deleted, nil
}

func (s *commentService) deleteComment(ctx context.Context, commentID uuid.UUID) error {
	var attachments []models.Attachment
	var responses int64

	err := s.repos.WithinTx(ctx, func(tx *repository.Repositories) error {
		var err error
		if attachments, err = tx.Attachment.ListByComment(ctx, commentID); err != nil {
			return err
		}
		if _, err = tx.Attachment.DeleteByComment(ctx, commentID); err != nil {
			return err
		}
		if responses, err = tx.Response.DeleteByComment(ctx, commentID); err != nil {
			return err
		}
		removed, err := tx.Comment.Delete(ctx, commentID)
		if err != nil {
			return err
		}
		if !removed {
			return NotFound(MsgCommentNotFound)
		}
		return nil
	})
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		s.log.Error().Err(err).Str("comment_id", commentID.String()).Msg("Failed to delete comment")
		return Internal(err)
	}

	// Rows are gone; file removal is best-effort
	for _, a := range attachments {
		s.removeFile(a.FileName, commentID)
	}

	s.metrics.CommentDeleted()
	s.log.Info().
		Str("comment_id", commentID.String()).
		Int("attachments", len(attachments)).
		Int64("responses", responses).
		Msg("Comment deleted")
	return nil
}

// AddResponse stores a reply on an existing comment
func (s *commentService) AddResponse(ctx context.Context, id auth.Identity, req *models.CreateResponseRequest) (*models.Response, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	if errs := s.validator.ValidateResponse(req); len(errs) > 0 {
		return nil, Validation(errs.Error(), errs)
	}

	comment, err := s.findComment(ctx, req.CommentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireIssueAccess(ctx, id, comment.IssueID); err != nil {
		return nil, err
	}

	response := &models.Response{
		ID:        uuid.New(),
		CommentID: comment.ID,
		UserID:    id.UserID,
		Text:      req.Text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repos.Response.Save(ctx, response); err != nil {
		s.log.Error().Err(err).Str("comment_id", comment.ID.String()).Msg("Failed to save response")
		return nil, Internal(err)
	}

	s.metrics.ResponseCreated()
	s.log.Info().Str("response_id", response.ID.String()).Str("comment_id", comment.ID.String()).Msg("Response created")

	response.User = s.lookupUsers(ctx, id, []uuid.UUID{response.UserID})[response.UserID]
	return response, nil
}

// ListResponses returns every response of a comment, oldest first
func (s *commentService) ListResponses(ctx context.Context, id auth.Identity, commentID uuid.UUID) ([]*models.Response, error) {
	comment, err := s.findComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireIssueAccess(ctx, id, comment.IssueID); err != nil {
		return nil, err
	}

	responses, err := s.repos.Response.ListByComment(ctx, comment.ID)
	if err != nil {
		return nil, Internal(fmt.Errorf("failed to list responses: %w", err))
	}
	if responses == nil {
		responses = []*models.Response{}
	}

	authors := make([]uuid.UUID, len(responses))
	for i, r := range responses {
		authors[i] = r.UserID
	}
	users := s.lookupUsers(ctx, id, authors)
	for _, r := range responses {
		r.User = users[r.UserID]
	}
	return responses, nil
}

// DeleteResponse removes a single response
func (s *commentService) DeleteResponse(ctx context.Context, id auth.Identity, responseID uuid.UUID) error {
	response, err := s.repos.Response.GetByID(ctx, responseID)
	if err != nil {
		return Internal(fmt.Errorf("failed to get response: %w", err))
	}
	if response == nil {
		return NotFound(MsgResponseNotFound)
	}

	comment, err := s.findComment(ctx, response.CommentID)
	if err != nil {
		return err
	}
	if err := s.requireIssueAccess(ctx, id, comment.IssueID); err != nil {
		return err
	}

	removed, err := s.repos.Response.Delete(ctx, response.ID)
	if err != nil {
		s.log.Error().Err(err).Str("response_id", response.ID.String()).Msg("Failed to delete response")
		return Internal(err)
	}
	if !removed {
		return NotFound(MsgResponseNotFound)
	}

	s.metrics.ResponseDeleted()
	s.log.Info().Str("response_id", response.ID.String()).Msg("Response deleted")
	return nil
}

func (s *commentService) findComment(ctx context.Context, commentID uuid.UUID) (*models.Comment, error) {
	comment, err := s.repos.Comment.GetByID(ctx, commentID)
	if err != nil {
		return nil, Internal(fmt.Errorf("failed to get comment: %w", err))
	}
	if comment == nil {
		return nil, NotFound(MsgCommentNotFound)
	}
	return comment, nil
}

func requireUser(id auth.Identity) error {
	if id.UserID == uuid.Nil {
		return Unauthorized(MsgUnauthenticated)
	}
	return nil
}

// requireIssueExists fails closed: an unreachable issue service counts as a missing issue
func (s *commentService) requireIssueExists(ctx context.Context, id auth.Identity, issueID uuid.UUID) error {
	verdict := s.issues.IssueExists(ctx, issueID, id.Token)
	if verdict == client.Allowed {
		return nil
	}
	s.rejectCheck("issue_exists", verdict, issueID)
	return NotFound(MsgIssueNotValid)
}

// requireIssueAccess fails closed like requireIssueExists
func (s *commentService) requireIssueAccess(ctx context.Context, id auth.Identity, issueID uuid.UUID) error {
	verdict := s.issues.IssueAccess(ctx, issueID, id.Token)
	if verdict == client.Allowed {
		return nil
	}
	s.rejectCheck("issue_access", verdict, issueID)
	return Forbidden(MsgIssueForbidden)
}

func (s *commentService) rejectCheck(check string, verdict client.Verdict, issueID uuid.UUID) {
	s.metrics.RecordCheckRejected(check, verdict.String())
	if verdict == client.Unreachable {
		s.log.Warn().
			Str("check", check).
			Str("issue_id", issueID.String()).
			Bool("unreachable", true).
			Msg("Issue service unreachable, rejecting request")
		return
	}
	s.log.Debug().Str("check", check).Str("issue_id", issueID.String()).Msg("Issue check denied")
}

// lookupUsers resolves display data for the distinct ids; failures leave the map empty
func (s *commentService) lookupUsers(ctx context.Context, id auth.Identity, ids []uuid.UUID) map[uuid.UUID]*models.UserBasic {
	seen := make(map[uuid.UUID]bool, len(ids))
	distinct := make([]uuid.UUID, 0, len(ids))
	for _, uid := range ids {
		if !seen[uid] {
			seen[uid] = true
			distinct = append(distinct, uid)
		}
	}

	byID := make(map[uuid.UUID]*models.UserBasic, len(distinct))
	if len(distinct) == 0 {
		return byID
	}
	for _, u := range s.users.UsersBasicData(ctx, id.Token, distinct) {
		u := u
		byID[u.ID] = &u
	}
	return byID
}

func (s *commentService) removeFile(name string, commentID uuid.UUID) {
	if err := s.files.Remove(name); err != nil {
		s.metrics.FileDeleteFailed()
		s.log.Warn().Err(err).
			Str("file", name).
			Str("comment_id", commentID.String()).
			Msg("Failed to delete attachment file")
	}
}

// discardFiles removes files written by a create that did not commit
func (s *commentService) discardFiles(names []string) {
	for _, name := range names {
		if err := s.files.Remove(name); err != nil {
			s.metrics.FileDeleteFailed()
			s.log.Warn().Err(err).Str("file", name).Msg("Failed to discard uncommitted upload")
		}
	}
}
