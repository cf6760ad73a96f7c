package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cartagena-corp/lm-comments/internal/config"
	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/cartagena-corp/lm-comments/internal/service"
	"github.com/cartagena-corp/lm-comments/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CommentHandler handles comment endpoints
type CommentHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

// ListComments handles GET /api/comments/:issueId?page&size&sort
func (h *CommentHandler) ListComments(c *gin.Context) {
	issueID, err := validation.ParseID("issueId", c.Param("issueId"))
	if err != nil {
		c.String(http.StatusBadRequest, validation.InvalidUUIDMessage)
		return
	}

	page, err := parsePageRequest(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Comment.ListComments(c.Request.Context(), identityFrom(c), issueID, page)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetComment handles GET /api/comments/comment/:commentId
func (h *CommentHandler) GetComment(c *gin.Context) {
	commentID, err := validation.ParseID("commentId", c.Param("commentId"))
	if err != nil {
		c.String(http.StatusBadRequest, validation.InvalidUUIDMessage)
		return
	}

	comment, err := h.services.Comment.GetComment(c.Request.Context(), identityFrom(c), commentID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// CreateComment handles POST /api/comments (multipart: issueId, text, files)
func (h *CommentHandler) CreateComment(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Upload.MaxUploadSize)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "Upload exceeds the maximum size")
			return
		}
		c.String(http.StatusBadRequest, "A multipart form is required")
		return
	}
	defer form.RemoveAll()

	issueID, err := validation.ParseID("issueId", firstValue(form.Value["issueId"]))
	if err != nil {
		c.String(http.StatusBadRequest, validation.InvalidUUIDMessage)
		return
	}

	req := &models.CreateCommentRequest{
		IssueID: issueID,
		Text:    firstValue(form.Value["text"]),
	}
	for _, fh := range form.File["files"] {
		fh := fh
		req.Files = append(req.Files, models.Upload{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	comment, err := h.services.Comment.CreateComment(c.Request.Context(), identityFrom(c), req)
	if err != nil {
		renderError(c, err)
		return
	}

	h.log.Debug().Str("comment_id", comment.ID.String()).Int("files", len(req.Files)).Msg("Comment created via API")
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment handles DELETE /api/comments/:commentId
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID, err := validation.ParseID("commentId", c.Param("commentId"))
	if err != nil {
		c.String(http.StatusBadRequest, validation.InvalidUUIDMessage)
		return
	}

	if err := h.services.Comment.DeleteComment(c.Request.Context(), identityFrom(c), commentID); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteCommentsByIssue handles DELETE /api/comments/issue/:issueId
func (h *CommentHandler) DeleteCommentsByIssue(c *gin.Context) {
	issueID, err := validation.ParseID("issueId", c.Param("issueId"))
	if err != nil {
		c.String(http.StatusBadRequest, validation.InvalidUUIDMessage)
		return
	}

	deleted, err := h.services.Comment.DeleteCommentsByIssue(c.Request.Context(), identityFrom(c), issueID)
	if err != nil {
		renderError(c, err)
		return
	}

	h.log.Info().Str("issue_id", issueID.String()).Int("deleted", deleted).Msg("Issue comments purged")
	c.Status(http.StatusNoContent)
}

// parsePageRequest reads page, size and sort; only createdAt ordering is supported
func parsePageRequest(c *gin.Context) (models.PageRequest, error) {
	var page models.PageRequest

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, errors.New("page must be a non-negative integer")
		}
		page.Page = n
	}
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, errors.New("size must be a positive integer")
		}
		page.Size = n
	}

	if raw := strings.TrimSpace(c.Query("sort")); raw != "" {
		field, dir, _ := strings.Cut(raw, ",")
		if strings.TrimSpace(field) != "createdAt" {
			return page, errors.New("sort supports createdAt only")
		}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "desc":
		case "asc":
			page.Ascending = true
		default:
			return page, errors.New("sort direction must be asc or desc")
		}
	}

	if page.Page > page.Normalize().LastPage() {
		return page, errors.New("page is out of range")
	}
	return page.Normalize(), nil
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// renderError writes a workflow failure as a plain text reason
func renderError(c *gin.Context, err error) {
	c.String(service.StatusCode(err), service.PublicMessage(err))
}
