package service

import (
	"time"

	"github.com/cartagena-corp/lm-comments/internal/config"
	"github.com/rs/zerolog"
)

// NewCommentServiceWithClock builds the workflow with a fixed clock
func NewCommentServiceWithClock(deps Dependencies, now func() time.Time) CommentService {
	s := newCommentService(deps.Repos, deps.Issues, deps.Users, deps.Files, deps.Metrics, zerolog.Nop())
	s.now = now
	return s
}

// NewJanitorWithClock builds the sweeper with a fixed clock
func NewJanitorWithClock(deps Dependencies, cfg config.JanitorConfig, now func() time.Time) JanitorService {
	j := newJanitor(deps.Files, deps.Repos.Attachment, cfg, deps.Metrics, zerolog.Nop())
	j.now = now
	return j
}
