package api

import (
	"net/http"

	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/cartagena-corp/lm-comments/internal/service"
	"github.com/cartagena-corp/lm-comments/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ResponseHandler handles comment response endpoints
type ResponseHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewResponseHandler creates a new ResponseHandler
func NewResponseHandler(services *service.Services, log zerolog.Logger) *ResponseHandler {
	return &ResponseHandler{
		services: services,
		log:      log.With().Str("handler", "response").Logger(),
	}
}

// AddResponse handles POST /api/comments/responses
func (h *ResponseHandler) AddResponse(c *gin.Context) {
	var body struct {
		CommentID string `json:"commentId"`
		Text      string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, "Invalid request body")
		return
	}

	commentID, err := validation.ParseID("commentId", body.CommentID)
	if err != nil {
		c.String(http.StatusBadRequest, validation.InvalidUUIDMessage)
		return
	}

	response, err := h.services.Comment.AddResponse(c.Request.Context(), identityFrom(c), &models.CreateResponseRequest{
		CommentID: commentID,
		Text:      body.Text,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// ListResponses handles GET /api/comments/responses/:commentId
func (h *ResponseHandler) ListResponses(c *gin.Context) {
	commentID, err := validation.ParseID("commentId", c.Param("commentId"))
	if err != nil {
		c.String(http.StatusBadRequest, validation.InvalidUUIDMessage)
		return
	}

	responses, err := h.services.Comment.ListResponses(c.Request.Context(), identityFrom(c), commentID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses)
}

// DeleteResponse handles DELETE /api/comments/responses/:responseId
func (h *ResponseHandler) DeleteResponse(c *gin.Context) {
	responseID, err := validation.ParseID("responseId", c.Param("responseId"))
	if err != nil {
		c.String(http.StatusBadRequest, validation.InvalidUUIDMessage)
		return
	}

	if err := h.services.Comment.DeleteResponse(c.Request.Context(), identityFrom(c), responseID); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
