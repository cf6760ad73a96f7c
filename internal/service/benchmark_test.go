package service_test

import (
	"context"
	"testing"

	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/google/uuid"
)

// BenchmarkCreateComment measures the create workflow with one attachment
func BenchmarkCreateComment(b *testing.B) {
	f := newFixture(b)
	id := identity(uuid.New())
	issueID := uuid.New()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, err := f.svc.CreateComment(context.Background(), id, &models.CreateCommentRequest{
			IssueID: issueID,
			Text:    "benchmark comment",
			Files:   []models.Upload{upload("a.png", "png")},
		})
		if err != nil {
			b.Fatalf("CreateComment failed: %v", err)
		}
	}
}

// BenchmarkListComments measures paging plus enrichment over a populated issue
func BenchmarkListComments(b *testing.B) {
	f := newFixture(b)
	issueID := uuid.New()
	authors := make([]uuid.UUID, 5)
	for i := range authors {
		authors[i] = uuid.New()
		f.users.Users[authors[i]] = models.UserBasic{ID: authors[i], FirstName: "User"}
	}
	for i := 0; i < 500; i++ {
		_, err := f.svc.CreateComment(context.Background(), identity(authors[i%len(authors)]), &models.CreateCommentRequest{IssueID: issueID, Text: "seed"})
		if err != nil {
			b.Fatalf("seed failed: %v", err)
		}
	}
	id := identity(authors[0])

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		page := models.PageRequest{Page: i % 50, Size: models.DefaultPageSize}
		if _, err := f.svc.ListComments(context.Background(), id, issueID, page); err != nil {
			b.Fatalf("ListComments failed: %v", err)
		}
	}
}
