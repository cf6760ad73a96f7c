package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/cartagena-corp/lm-comments/internal/auth"
	"github.com/cartagena-corp/lm-comments/internal/client"
	"github.com/cartagena-corp/lm-comments/internal/metrics"
	"github.com/cartagena-corp/lm-comments/internal/mocks"
	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/cartagena-corp/lm-comments/internal/service"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixture struct {
	store   *mocks.MockStore
	issues  *mocks.MockIssueValidator
	users   *mocks.MockUserDirectory
	files   *mocks.MockFileStorage
	metrics *metrics.Metrics
	svc     service.CommentService
	base    time.Time
	ticks   int
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	f := &fixture{
		store:   mocks.NewMockStore(),
		issues:  mocks.NewMockIssueValidator(),
		users:   mocks.NewMockUserDirectory(),
		files:   mocks.NewMockFileStorage(),
		metrics: metrics.NewWithRegistry(prometheus.NewRegistry()),
		base:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	// Every call advances the clock so creation order is observable
	clock := func() time.Time {
		f.ticks++
		return f.base.Add(time.Duration(f.ticks) * time.Second)
	}
	f.svc = service.NewCommentServiceWithClock(f.deps(), clock)
	return f
}

func (f *fixture) deps() service.Dependencies {
	return service.Dependencies{
		Repos:   f.store.Repositories(),
		Issues:  f.issues,
		Users:   f.users,
		Files:   f.files,
		Metrics: f.metrics,
	}
}

func (f *fixture) createComment(t *testing.T, id auth.Identity, issueID uuid.UUID, text string, files ...models.Upload) *models.Comment {
	t.Helper()
	comment, err := f.svc.CreateComment(context.Background(), id, &models.CreateCommentRequest{IssueID: issueID, Text: text, Files: files})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	return comment
}

func identity(userID uuid.UUID) auth.Identity {
	return auth.Identity{UserID: userID, Token: "token-" + userID.String()[:8]}
}

func upload(name, body string) models.Upload {
	return models.Upload{
		Name: name,
		Size: int64(len(body)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil },
	}
}

func requireKind(t *testing.T, err error, want service.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := service.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func TestCreateComment_AssignsServerFields(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	orgID := uuid.New()
	issueID := uuid.New()
	f.users.Users[userID] = models.UserBasic{ID: userID, FirstName: "Ada", LastName: "Lovelace"}

	id := identity(userID)
	id.OrganizationID = &orgID
	comment := f.createComment(t, id, issueID, "  first note ")

	if comment.ID == uuid.Nil {
		t.Error("Expected a newly assigned id")
	}
	if comment.IssueID != issueID {
		t.Errorf("Expected issue %s, got %s", issueID, comment.IssueID)
	}
	if comment.UserID != userID {
		t.Errorf("Expected user %s, got %s", userID, comment.UserID)
	}
	if comment.Text != "first note" {
		t.Errorf("Expected trimmed text, got %q", comment.Text)
	}
	if comment.CreatedAt.IsZero() || comment.CreatedAt.Location() != time.UTC {
		t.Errorf("Expected UTC creation time, got %v", comment.CreatedAt)
	}
	if comment.OrganizationID == nil || *comment.OrganizationID != orgID {
		t.Error("Expected organization from the caller identity")
	}
	if comment.User == nil || comment.User.FirstName != "Ada" {
		t.Errorf("Expected author projection, got %+v", comment.User)
	}
	if _, ok := f.store.Comments[comment.ID]; !ok {
		t.Error("Comment should be persisted")
	}
	if f.issues.ExistsCalls != 1 || f.issues.AccessCalls != 1 {
		t.Errorf("Expected one existence and one access check, got %d/%d", f.issues.ExistsCalls, f.issues.AccessCalls)
	}
	if f.issues.Tokens[0] != id.Token {
		t.Errorf("Expected caller token to be forwarded, got %q", f.issues.Tokens[0])
	}
	if got := testutil.ToFloat64(f.metrics.CommentsCreated); got != 1 {
		t.Errorf("Expected comments_created 1, got %v", got)
	}
}

func TestCreateComment_EndToEndScenario(t *testing.T) {
	f := newFixture(t)
	issueI1 := uuid.New()
	userU1 := uuid.New()

	comment := f.createComment(t, identity(userU1), issueI1, "hello", upload("a.png", "png-bytes"))

	if comment.ID == uuid.Nil {
		t.Fatal("Expected non-nil id")
	}
	if comment.IssueID != issueI1 || comment.UserID != userU1 {
		t.Errorf("Unexpected ownership %s/%s", comment.IssueID, comment.UserID)
	}
	if len(comment.Attachments) != 1 {
		t.Fatalf("Expected 1 attachment, got %d", len(comment.Attachments))
	}
	url := comment.Attachments[0].FileURL
	if !strings.HasSuffix(url, "_a.png") || strings.HasSuffix(url, "/a.png") {
		t.Errorf("Expected generated file name suffix, got %s", url)
	}
	if comment.Attachments[0].CommentID != comment.ID {
		t.Error("Attachment should reference its comment")
	}
	if len(f.files.Files) != 1 {
		t.Errorf("Expected one stored file, got %d", len(f.files.Files))
	}
}

func TestCreateComment_IssueChecksRejectAndPersistNothing(t *testing.T) {
	tests := []struct {
		name     string
		exists   client.Verdict
		access   client.Verdict
		wantKind service.Kind
		wantMsg  string
		check    string
		verdict  string
	}{
		{"issue does not exist", client.Denied, client.Allowed, service.KindNotFound, service.MsgIssueNotValid, "issue_exists", "denied"},
		{"issue service down on existence", client.Unreachable, client.Allowed, service.KindNotFound, service.MsgIssueNotValid, "issue_exists", "unreachable"},
		{"access denied", client.Allowed, client.Denied, service.KindForbidden, service.MsgIssueForbidden, "issue_access", "denied"},
		{"issue service down on access", client.Allowed, client.Unreachable, service.KindForbidden, service.MsgIssueForbidden, "issue_access", "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.issues.Exists = tt.exists
			f.issues.Access = tt.access

			_, err := f.svc.CreateComment(context.Background(), identity(uuid.New()), &models.CreateCommentRequest{
				IssueID: uuid.New(),
				Text:    "hello",
				Files:   []models.Upload{upload("a.png", "x")},
			})

			requireKind(t, err, tt.wantKind)
			if service.PublicMessage(err) != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, service.PublicMessage(err))
			}
			if len(f.store.Comments) != 0 || len(f.store.Attachments) != 0 {
				t.Error("Nothing should be persisted")
			}
			if len(f.files.Files) != 0 {
				t.Error("No file should be written")
			}
			if got := testutil.ToFloat64(f.metrics.AccessChecksRejected.WithLabelValues(tt.check, tt.verdict)); got != 1 {
				t.Errorf("Expected rejection metric for %s/%s, got %v", tt.check, tt.verdict, got)
			}
		})
	}
}

func TestCreateComment_RequiresUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateComment(context.Background(), auth.Identity{Token: "t"}, &models.CreateCommentRequest{IssueID: uuid.New(), Text: "hi"})

	requireKind(t, err, service.KindUnauthorized)
	if f.issues.ExistsCalls != 0 {
		t.Error("Issue service should not be called for anonymous callers")
	}
}

func TestCreateComment_InvalidText(t *testing.T) {
	f := newFixture(t)

	for _, text := range []string{"", "   ", "<br/>", strings.Repeat("x", models.MaxTextLength+1)} {
		_, err := f.svc.CreateComment(context.Background(), identity(uuid.New()), &models.CreateCommentRequest{IssueID: uuid.New(), Text: text})
		requireKind(t, err, service.KindValidation)
	}
	if len(f.store.Comments) != 0 {
		t.Error("Nothing should be persisted")
	}
}

func TestCreateComment_FileFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.files.FailOnSave = 2

	_, err := f.svc.CreateComment(context.Background(), identity(uuid.New()), &models.CreateCommentRequest{
		IssueID: uuid.New(),
		Text:    "with files",
		Files:   []models.Upload{upload("one.txt", "1"), upload("two.txt", "2"), upload("three.txt", "3")},
	})

	requireKind(t, err, service.KindStorage)
	if service.PublicMessage(err) != service.MsgFilesNotSaved {
		t.Errorf("Expected %q, got %q", service.MsgFilesNotSaved, service.PublicMessage(err))
	}
	if service.StatusCode(err) != 500 {
		t.Errorf("Expected 500, got %d", service.StatusCode(err))
	}
	if len(f.store.Comments) != 0 || len(f.store.Attachments) != 0 {
		t.Errorf("Expected rollback, found %d comments and %d attachments", len(f.store.Comments), len(f.store.Attachments))
	}
	if len(f.files.Files) != 0 {
		t.Errorf("Expected written files to be discarded, %d remain", len(f.files.Files))
	}
	if f.store.Rollbacks != 1 {
		t.Errorf("Expected one rollback, got %d", f.store.Rollbacks)
	}
}

func TestCreateComment_UnreadableUploadIsStorageFailure(t *testing.T) {
	f := newFixture(t)
	broken := models.Upload{Name: "x.bin", Open: func() (io.ReadCloser, error) { return nil, errors.New("multipart gone") }}

	_, err := f.svc.CreateComment(context.Background(), identity(uuid.New()), &models.CreateCommentRequest{
		IssueID: uuid.New(),
		Text:    "hi",
		Files:   []models.Upload{broken},
	})

	requireKind(t, err, service.KindStorage)
	if len(f.store.Comments) != 0 {
		t.Error("Comment should be rolled back")
	}
}

func TestCreateComment_AttachmentRowFailureDiscardsFiles(t *testing.T) {
	f := newFixture(t)
	f.store.SaveAttachmentError = errors.New("unique violation")

	_, err := f.svc.CreateComment(context.Background(), identity(uuid.New()), &models.CreateCommentRequest{
		IssueID: uuid.New(),
		Text:    "hi",
		Files:   []models.Upload{upload("a.png", "x")},
	})

	requireKind(t, err, service.KindInternal)
	if len(f.files.Files) != 0 {
		t.Error("Stored file should be discarded")
	}
	if len(f.store.Comments) != 0 {
		t.Error("Comment should be rolled back")
	}
}

func TestCreateComment_UserLookupFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.users.Fail = true

	comment := f.createComment(t, identity(uuid.New()), uuid.New(), "still saved")

	if comment.User != nil {
		t.Errorf("Expected no author projection, got %+v", comment.User)
	}
	if _, ok := f.store.Comments[comment.ID]; !ok {
		t.Error("Comment should be persisted")
	}
}

func TestGetComment_RoundTripWithTwoFiles(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())

	created := f.createComment(t, id, uuid.New(), "two files", upload("a.png", "a"), upload("a.png", "b"))

	got, err := f.svc.GetComment(context.Background(), id, created.ID)
	if err != nil {
		t.Fatalf("GetComment failed: %v", err)
	}
	if len(got.Attachments) != 2 {
		t.Fatalf("Expected 2 attachments, got %d", len(got.Attachments))
	}
	first, second := got.Attachments[0].FileURL, got.Attachments[1].FileURL
	if first == second {
		t.Error("Attachment URLs must be distinct")
	}
	for _, url := range []string{first, second} {
		if !strings.HasPrefix(url, f.files.BaseURL) {
			t.Errorf("Expected public URL under %s, got %s", f.files.BaseURL, url)
		}
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Error("createdAt must not change")
	}
}

func TestGetComment_AttachmentsKeepUploadOrder(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())

	created := f.createComment(t, id, uuid.New(), "three files",
		upload("3.png", "c"), upload("1.png", "a"), upload("2.png", "b"))

	got, err := f.svc.GetComment(context.Background(), id, created.ID)
	if err != nil {
		t.Fatalf("GetComment failed: %v", err)
	}
	if len(got.Attachments) != len(created.Attachments) {
		t.Fatalf("Expected %d attachments, got %d", len(created.Attachments), len(got.Attachments))
	}
	for i := range created.Attachments {
		if got.Attachments[i].ID != created.Attachments[i].ID {
			t.Errorf("attachment %d: expected %s, got %s", i, created.Attachments[i].ID, got.Attachments[i].ID)
		}
		if !strings.HasSuffix(got.Attachments[i].FileName, []string{"_3.png", "_1.png", "_2.png"}[i]) {
			t.Errorf("attachment %d out of upload order: %s", i, got.Attachments[i].FileName)
		}
	}
}

func TestGetComment_NotFoundAndForbidden(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())

	_, err := f.svc.GetComment(context.Background(), id, uuid.New())
	requireKind(t, err, service.KindNotFound)

	created := f.createComment(t, id, uuid.New(), "x")
	f.issues.Access = client.Denied
	_, err = f.svc.GetComment(context.Background(), id, created.ID)
	requireKind(t, err, service.KindForbidden)
}

func TestListComments_OrderAndTotals(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	issueID := uuid.New()
	otherIssue := uuid.New()

	var created []*models.Comment
	for i := 0; i < 25; i++ {
		created = append(created, f.createComment(t, id, issueID, "comment"))
	}
	f.createComment(t, id, otherIssue, "elsewhere")

	page, err := f.svc.ListComments(context.Background(), id, issueID, models.PageRequest{Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if page.TotalElements != 25 || page.TotalPages != 3 || page.CurrentPage != 0 || page.Size != 10 {
		t.Errorf("Unexpected page metadata %+v", page)
	}
	if len(page.Content) != 10 {
		t.Fatalf("Expected 10 comments, got %d", len(page.Content))
	}
	if page.Content[0].ID != created[24].ID {
		t.Error("Expected newest comment first")
	}
	for i := 1; i < len(page.Content); i++ {
		if page.Content[i].CreatedAt.After(page.Content[i-1].CreatedAt) {
			t.Fatalf("Comments not in descending order at %d", i)
		}
	}

	last, err := f.svc.ListComments(context.Background(), id, issueID, models.PageRequest{Page: 2, Size: 10})
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if len(last.Content) != 5 || last.Content[4].ID != created[0].ID {
		t.Errorf("Expected the 5 oldest comments on the last page, got %d", len(last.Content))
	}

	asc, err := f.svc.ListComments(context.Background(), id, issueID, models.PageRequest{Size: 5, Ascending: true})
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if asc.Content[0].ID != created[0].ID {
		t.Error("Expected oldest comment first when ascending")
	}
}

func TestListComments_DefaultsAndEmptyPage(t *testing.T) {
	f := newFixture(t)

	page, err := f.svc.ListComments(context.Background(), identity(uuid.New()), uuid.New(), models.PageRequest{Page: -1})
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if page.Size != models.DefaultPageSize || page.CurrentPage != 0 {
		t.Errorf("Expected default paging, got %+v", page)
	}
	if page.Content == nil || len(page.Content) != 0 || page.TotalPages != 0 {
		t.Errorf("Expected empty non-nil content, got %+v", page)
	}
	if f.users.Calls != 0 || f.store.CountCalls != 0 {
		t.Error("Empty page should not trigger enrichment lookups")
	}
}

func TestListComments_CountsSurviveUserLookupFailure(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	issueID := uuid.New()

	busy := f.createComment(t, id, issueID, "busy")
	quiet := f.createComment(t, id, issueID, "quiet")
	for i := 0; i < 3; i++ {
		if _, err := f.svc.AddResponse(context.Background(), id, &models.CreateResponseRequest{CommentID: busy.ID, Text: "reply"}); err != nil {
			t.Fatalf("AddResponse failed: %v", err)
		}
	}
	f.users.Fail = true

	page, err := f.svc.ListComments(context.Background(), id, issueID, models.PageRequest{})
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	counts := map[uuid.UUID]int{}
	for _, c := range page.Content {
		counts[c.ID] = c.ResponsesCount
		if c.User != nil {
			t.Error("No user projection expected when lookup fails")
		}
	}
	if counts[busy.ID] != 3 || counts[quiet.ID] != 0 {
		t.Errorf("Unexpected response counts %v", counts)
	}
}

func TestListComments_BatchesDistinctAuthors(t *testing.T) {
	f := newFixture(t)
	alice, bob := uuid.New(), uuid.New()
	f.users.Users[alice] = models.UserBasic{ID: alice, FirstName: "Alice"}
	f.users.Users[bob] = models.UserBasic{ID: bob, FirstName: "Bob"}
	issueID := uuid.New()

	f.createComment(t, identity(alice), issueID, "1")
	f.createComment(t, identity(bob), issueID, "2")
	f.createComment(t, identity(alice), issueID, "3")
	f.users.Calls, f.users.Requested = 0, nil

	page, err := f.svc.ListComments(context.Background(), identity(alice), issueID, models.PageRequest{})
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if f.users.Calls != 1 || len(f.users.Requested[0]) != 2 {
		t.Errorf("Expected one batch with 2 distinct ids, got %d calls %v", f.users.Calls, f.users.Requested)
	}
	for _, c := range page.Content {
		if c.User == nil || c.User.ID != c.UserID {
			t.Errorf("Comment %s missing its author", c.ID)
		}
	}
}

func TestListComments_Forbidden(t *testing.T) {
	f := newFixture(t)
	f.issues.Access = client.Denied

	_, err := f.svc.ListComments(context.Background(), identity(uuid.New()), uuid.New(), models.PageRequest{})
	requireKind(t, err, service.KindForbidden)
}

func TestListComments_CountFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	issueID := uuid.New()
	f.createComment(t, id, issueID, "x")
	f.store.CountError = errors.New("db down")

	_, err := f.svc.ListComments(context.Background(), id, issueID, models.PageRequest{})
	requireKind(t, err, service.KindInternal)
}

func TestDeleteComment_NotFoundAndTwice(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())

	requireKind(t, f.svc.DeleteComment(context.Background(), id, uuid.New()), service.KindNotFound)

	created := f.createComment(t, id, uuid.New(), "bye")
	if err := f.svc.DeleteComment(context.Background(), id, created.ID); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	requireKind(t, f.svc.DeleteComment(context.Background(), id, created.ID), service.KindNotFound)
}

func TestDeleteComment_CascadesAndToleratesFileFailures(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())

	created := f.createComment(t, id, uuid.New(), "files", upload("a.txt", "a"), upload("b.txt", "b"), upload("c.txt", "c"))
	if _, err := f.svc.AddResponse(context.Background(), id, &models.CreateResponseRequest{CommentID: created.ID, Text: "reply"}); err != nil {
		t.Fatalf("AddResponse failed: %v", err)
	}
	f.files.FailRemove[created.Attachments[1].FileName] = true

	if err := f.svc.DeleteComment(context.Background(), id, created.ID); err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}

	if len(f.files.Removed) != 3 {
		t.Errorf("Expected removal attempts for 3 files, got %d", len(f.files.Removed))
	}
	if _, ok := f.store.Comments[created.ID]; ok {
		t.Error("Comment row should be deleted")
	}
	if len(f.store.Attachments) != 0 || len(f.store.Responses) != 0 {
		t.Error("Child rows should be deleted")
	}
	if got := testutil.ToFloat64(f.metrics.FileDeleteFailures); got != 1 {
		t.Errorf("Expected one file delete failure, got %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.CommentsDeleted); got != 1 {
		t.Errorf("Expected comments_deleted 1, got %v", got)
	}
}

func TestDeleteComment_ForbiddenKeepsEverything(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	created := f.createComment(t, id, uuid.New(), "keep", upload("a.txt", "a"))
	f.issues.Access = client.Unreachable

	requireKind(t, f.svc.DeleteComment(context.Background(), id, created.ID), service.KindForbidden)

	if _, ok := f.store.Comments[created.ID]; !ok {
		t.Error("Comment should remain")
	}
	if len(f.files.Removed) != 0 {
		t.Error("No file should be removed")
	}
}

func TestDeleteComment_StorageFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	created := f.createComment(t, id, uuid.New(), "keep", upload("a.txt", "a"))
	f.store.DeleteCommentError = errors.New("lock timeout")

	requireKind(t, f.svc.DeleteComment(context.Background(), id, created.ID), service.KindInternal)

	if len(f.store.Attachments) != 1 {
		t.Error("Attachment rows should be restored by the rollback")
	}
	if len(f.files.Removed) != 0 {
		t.Error("Files must stay when the delete did not commit")
	}
}

func TestDeleteCommentsByIssue(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	issueID := uuid.New()
	otherIssue := uuid.New()

	f.createComment(t, id, issueID, "a", upload("a.txt", "a"))
	f.createComment(t, id, issueID, "b")
	kept := f.createComment(t, id, otherIssue, "c", upload("c.txt", "c"))

	deleted, err := f.svc.DeleteCommentsByIssue(context.Background(), id, issueID)
	if err != nil {
		t.Fatalf("DeleteCommentsByIssue failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted, got %d", deleted)
	}
	if len(f.store.Comments) != 1 || f.store.Comments[kept.ID] == nil {
		t.Error("Only the other issue's comment should remain")
	}
	if len(f.files.Files) != 1 {
		t.Errorf("Expected only the other issue's file to remain, got %d", len(f.files.Files))
	}
	if f.issues.AccessCalls != 4 {
		// three creates plus one check for the bulk delete
		t.Errorf("Expected a single access check for the bulk delete, got %d total", f.issues.AccessCalls)
	}
}

func TestDeleteCommentsByIssue_Forbidden(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	issueID := uuid.New()
	f.createComment(t, id, issueID, "a")
	f.issues.Access = client.Denied

	deleted, err := f.svc.DeleteCommentsByIssue(context.Background(), id, issueID)
	requireKind(t, err, service.KindForbidden)
	if deleted != 0 || len(f.store.Comments) != 1 {
		t.Error("Nothing should be deleted")
	}
}

func TestAddResponse(t *testing.T) {
	f := newFixture(t)
	author := uuid.New()
	responder := uuid.New()
	f.users.Users[responder] = models.UserBasic{ID: responder, FirstName: "Rita"}
	comment := f.createComment(t, identity(author), uuid.New(), "question")

	response, err := f.svc.AddResponse(context.Background(), identity(responder), &models.CreateResponseRequest{CommentID: comment.ID, Text: "answer"})
	if err != nil {
		t.Fatalf("AddResponse failed: %v", err)
	}
	if response.ID == uuid.Nil || response.CommentID != comment.ID {
		t.Errorf("Unexpected response %+v", response)
	}
	if response.UserID != responder {
		t.Errorf("Expected server assigned user %s, got %s", responder, response.UserID)
	}
	if !response.CreatedAt.After(comment.CreatedAt) {
		t.Error("Expected server assigned creation time")
	}
	if response.User == nil || response.User.FirstName != "Rita" {
		t.Error("Expected author projection")
	}
	if got := testutil.ToFloat64(f.metrics.ResponsesCreated); got != 1 {
		t.Errorf("Expected responses_created 1, got %v", got)
	}
}

func TestAddResponse_Rejections(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	comment := f.createComment(t, id, uuid.New(), "question")

	_, err := f.svc.AddResponse(context.Background(), id, &models.CreateResponseRequest{CommentID: uuid.New(), Text: "orphan"})
	requireKind(t, err, service.KindNotFound)

	_, err = f.svc.AddResponse(context.Background(), id, &models.CreateResponseRequest{CommentID: comment.ID, Text: " "})
	requireKind(t, err, service.KindValidation)

	_, err = f.svc.AddResponse(context.Background(), auth.Identity{}, &models.CreateResponseRequest{CommentID: comment.ID, Text: "anon"})
	requireKind(t, err, service.KindUnauthorized)

	f.issues.Access = client.Denied
	_, err = f.svc.AddResponse(context.Background(), id, &models.CreateResponseRequest{CommentID: comment.ID, Text: "nope"})
	requireKind(t, err, service.KindForbidden)

	if len(f.store.Responses) != 0 {
		t.Errorf("Nothing should be persisted, found %d responses", len(f.store.Responses))
	}
}

func TestListResponses_OldestFirst(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	comment := f.createComment(t, id, uuid.New(), "question")

	for _, text := range []string{"first", "second", "third"} {
		if _, err := f.svc.AddResponse(context.Background(), id, &models.CreateResponseRequest{CommentID: comment.ID, Text: text}); err != nil {
			t.Fatalf("AddResponse failed: %v", err)
		}
	}

	responses, err := f.svc.ListResponses(context.Background(), id, comment.ID)
	if err != nil {
		t.Fatalf("ListResponses failed: %v", err)
	}
	if len(responses) != 3 || responses[0].Text != "first" || responses[2].Text != "third" {
		t.Errorf("Unexpected responses order")
	}

	_, err = f.svc.ListResponses(context.Background(), id, uuid.New())
	requireKind(t, err, service.KindNotFound)
}

func TestListResponses_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	comment := f.createComment(t, id, uuid.New(), "lonely")
	f.users.Calls = 0

	responses, err := f.svc.ListResponses(context.Background(), id, comment.ID)
	if err != nil {
		t.Fatalf("ListResponses failed: %v", err)
	}
	if responses == nil || len(responses) != 0 {
		t.Errorf("Expected empty list, got %v", responses)
	}
	if f.users.Calls != 0 {
		t.Error("No user lookup expected for an empty list")
	}
}

func TestDeleteResponse(t *testing.T) {
	f := newFixture(t)
	id := identity(uuid.New())
	comment := f.createComment(t, id, uuid.New(), "question")
	response, err := f.svc.AddResponse(context.Background(), id, &models.CreateResponseRequest{CommentID: comment.ID, Text: "answer"})
	if err != nil {
		t.Fatalf("AddResponse failed: %v", err)
	}

	f.issues.Access = client.Denied
	requireKind(t, f.svc.DeleteResponse(context.Background(), id, response.ID), service.KindForbidden)

	f.issues.Access = client.Allowed
	if err := f.svc.DeleteResponse(context.Background(), id, response.ID); err != nil {
		t.Fatalf("DeleteResponse failed: %v", err)
	}
	requireKind(t, f.svc.DeleteResponse(context.Background(), id, response.ID), service.KindNotFound)

	if _, ok := f.store.Comments[comment.ID]; !ok {
		t.Error("Parent comment must survive")
	}
}
