package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"beomusic_backend/internal/docstore"
	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/pagination"
	"beomusic_backend/internal/repository"
	"beomusic_backend/internal/service"
	"beomusic_backend/internal/session"
	"beomusic_backend/internal/transport/http/middleware"
)

// =============================================================================
// TEST SERVER
// =============================================================================

// testEnv wires the comment, session and library handlers over in-memory stores.
type testEnv struct {
	docs   *docstore.MemoryStore
	router chi.Router
}

// stubProfiles gives every user a display name equal to their ID.
type stubProfiles struct{}

func (stubProfiles) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return &model.Profile{DisplayName: userID}, nil
}

// asUser stands in for the auth middleware: the X-Test-User header becomes the caller.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Test-User"); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestEnv(t *testing.T, pageSize int) *testEnv {
	t.Helper()
	log := logger.Discard()

	docs := docstore.NewMemoryStore()
	comments := repository.NewCommentStore(docs)
	pages := pagination.NewAssembler(comments, log)

	commentHandler := NewCommentHandler(service.NewCommentService(comments, stubProfiles{}, pages, nil, pageSize, 50, log), log)
	sessionHandler := NewSessionHandler(session.NewBrowser(session.NewMemoryStore(time.Minute), pages, pageSize, 50, log), log)

	r := chi.NewRouter()
	r.Use(asUser)
	r.Get("/songs/{songId}/comments", commentHandler.List)
	r.Post("/songs/{songId}/comments", commentHandler.Create)
	r.Delete("/comments/{commentId}", commentHandler.Delete)
	r.Post("/songs/{songId}/comment-sessions", sessionHandler.Open)
	r.Get("/comment-sessions/{sessionId}", sessionHandler.Get)
	r.Post("/comment-sessions/{sessionId}/more", sessionHandler.More)
	r.Post("/comment-sessions/{sessionId}/reset", sessionHandler.Reset)
	r.Delete("/comment-sessions/{sessionId}", sessionHandler.Close)

	library := service.NewLibraryService(repository.NewAlbumStore(docs), log)
	albumHandler := NewAlbumHandler(library, log)
	favoriteHandler := NewFavoriteHandler(library, log)
	r.Get("/me/albums", albumHandler.List)
	r.Post("/me/albums", albumHandler.Create)
	r.Get("/albums/{albumId}", albumHandler.Get)
	r.Patch("/albums/{albumId}", albumHandler.Update)
	r.Delete("/albums/{albumId}", albumHandler.Delete)
	r.Get("/albums/{albumId}/songs", albumHandler.Songs)
	r.Post("/albums/{albumId}/songs", albumHandler.AddSong)
	r.Delete("/albums/{albumId}/songs/{songId}", albumHandler.RemoveSong)
	r.Get("/me/favorites", favoriteHandler.List)
	r.Get("/me/favorites/{songId}", favoriteHandler.Status)
	r.Put("/me/favorites/{songId}", favoriteHandler.Add)
	r.Delete("/me/favorites/{songId}", favoriteHandler.Remove)
	r.Post("/me/favorites/{songId}/toggle", favoriteHandler.Toggle)

	return &testEnv{docs: docs, router: r}
}

func (e *testEnv) seed(id, songID, userID string, sec int64) {
	ts := time.Unix(sec, 0).UTC()
	e.docs.Put("comments", docstore.Document{ID: id, CreatedAt: &ts, Fields: map[string]interface{}{
		"songId": songID, "userId": userID, "content": "comment " + id, "username": userID,
	}})
}

func (e *testEnv) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func commentIDs(comments []model.Comment) string {
	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	return strings.Join(ids, ",")
}

// =============================================================================
// COMMENTS
// =============================================================================

func TestCommentHandler_ListPagesWithCursor(t *testing.T) {
	env := newTestEnv(t, 2)
	env.seed("A", "s1", "u1", 300)
	env.seed("B", "s1", "u2", 200)
	env.seed("C", "s1", "u1", 100)
	env.seed("X", "other", "u1", 999)

	rec := env.do(t, http.MethodGet, "/songs/s1/comments", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	first := decode[model.CommentPage](t, rec)
	if commentIDs(first.Comments) != "A,B" || !first.HasMore || first.NextCursor == nil {
		t.Fatalf("first page = %+v", first)
	}

	rec = env.do(t, http.MethodGet, "/songs/s1/comments?cursor="+*first.NextCursor, "", "")
	second := decode[model.CommentPage](t, rec)
	if commentIDs(second.Comments) != "C" || second.HasMore {
		t.Fatalf("second page = %+v", second)
	}
}

func TestCommentHandler_ListEmptySong(t *testing.T) {
	env := newTestEnv(t, 20)

	rec := env.do(t, http.MethodGet, "/songs/empty/comments", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"comments":[]`) || !strings.Contains(body, `"has_more":false`) {
		t.Errorf("body = %s, want empty list without more", body)
	}
}

func TestCommentHandler_ListBadInput(t *testing.T) {
	env := newTestEnv(t, 20)

	for _, path := range []string{
		"/songs/s1/comments?cursor=abc",
		"/songs/s1/comments?limit=0",
		"/songs/s1/comments?limit=ten",
	} {
		if rec := env.do(t, http.MethodGet, path, "", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestCommentHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		user       string
		body       string
		wantStatus int
	}{
		{name: "created", user: "u1", body: `{"content":"nice"}`, wantStatus: http.StatusCreated},
		{name: "unauthenticated", user: "", body: `{"content":"nice"}`, wantStatus: http.StatusUnauthorized},
		{name: "empty content", user: "u1", body: `{"content":"  "}`, wantStatus: http.StatusBadRequest},
		{name: "bad json", user: "u1", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 20)

			rec := env.do(t, http.MethodPost, "/songs/s1/comments", tt.user, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			wantStored := 0
			if tt.wantStatus == http.StatusCreated {
				wantStored = 1
				c := decode[model.Comment](t, rec)
				if c.ID == "" || c.CreatedAt == nil || c.Username != "u1" {
					t.Errorf("comment = %+v, want id, timestamp and author snapshot", c)
				}
			}
			if got := env.docs.Len("comments"); got != wantStored {
				t.Errorf("stored = %d, want %d", got, wantStored)
			}
		})
	}
}

func TestCommentHandler_Delete(t *testing.T) {
	env := newTestEnv(t, 20)
	env.seed("c1", "s1", "owner", 100)

	if rec := env.do(t, http.MethodDelete, "/comments/c1", "intruder", ""); rec.Code != http.StatusForbidden {
		t.Errorf("non-author delete: status = %d, want 403", rec.Code)
	}
	if env.docs.Len("comments") != 1 {
		t.Fatal("comment should be unchanged after a forbidden delete")
	}
	if rec := env.do(t, http.MethodDelete, "/comments/c1", "owner", ""); rec.Code != http.StatusNoContent {
		t.Errorf("author delete: status = %d, want 204", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/comments/c1", "owner", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// BROWSE SESSIONS
// =============================================================================

func TestSessionHandler_LoadMoreUntilExhausted(t *testing.T) {
	env := newTestEnv(t, 2)
	env.seed("A", "s1", "u1", 300)
	env.seed("B", "s1", "u2", 200)
	env.seed("C", "s1", "u1", 100)

	rec := env.do(t, http.MethodPost, "/songs/s1/comment-sessions", "viewer", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("open: status = %d, body %s", rec.Code, rec.Body.String())
	}
	first := decode[model.BrowsePage](t, rec)
	if commentIDs(first.Comments) != "A,B" || !first.Session.HasMore || first.Session.State != model.SessionLoaded {
		t.Fatalf("first = %+v / %+v", first.Session, first.Comments)
	}
	path := "/comment-sessions/" + first.Session.ID

	rec = env.do(t, http.MethodPost, path+"/more", "viewer", "")
	second := decode[model.BrowsePage](t, rec)
	if commentIDs(second.Comments) != "C" || second.Session.HasMore {
		t.Fatalf("second = %+v / %+v", second.Session, second.Comments)
	}

	// Past the end is still a success: same session, nothing new.
	rec = env.do(t, http.MethodPost, path+"/more", "viewer", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("load after exhaustion: status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"comments":[]`) || !strings.Contains(body, `"has_more":false`) {
		t.Errorf("load after exhaustion: body = %s, want empty comments without more", body)
	}

	rec = env.do(t, http.MethodPost, path+"/reset", "viewer", "")
	reset := decode[model.BrowsePage](t, rec)
	if commentIDs(reset.Comments) != "A,B" {
		t.Errorf("reset = %v, want first page again", commentIDs(reset.Comments))
	}
}

func TestSessionHandler_OwnershipAndClose(t *testing.T) {
	env := newTestEnv(t, 20)

	rec := env.do(t, http.MethodPost, "/songs/s1/comment-sessions", "viewer", `{"page_size":5}`)
	opened := decode[model.BrowsePage](t, rec)
	if opened.Session.PageSize != 5 {
		t.Errorf("page size = %d, want 5", opened.Session.PageSize)
	}
	path := "/comment-sessions/" + opened.Session.ID

	if rec := env.do(t, http.MethodGet, path, "someone-else", ""); rec.Code != http.StatusNotFound {
		t.Errorf("foreign viewer: status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, path, "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, path, "viewer", ""); rec.Code != http.StatusNoContent {
		t.Errorf("close: status = %d, want 204", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, path, "viewer", ""); rec.Code != http.StatusNotFound {
		t.Errorf("after close: status = %d, want 404", rec.Code)
	}
}

func TestSessionHandler_OpenRejectsNegativePageSize(t *testing.T) {
	env := newTestEnv(t, 20)

	if rec := env.do(t, http.MethodPost, "/songs/s1/comment-sessions", "viewer", `{"page_size":-1}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
