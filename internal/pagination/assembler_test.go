package pagination

import (
	"context"
	"errors"
	"testing"

	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/model"
)

// =============================================================================
// MOCK FETCHER
// =============================================================================

type mockFetcher struct {
	fetchAllFn func(ctx context.Context, songID string) ([]model.Comment, error)
	calls      int
}

func (m *mockFetcher) FetchAll(ctx context.Context, songID string) ([]model.Comment, error) {
	m.calls++
	if m.fetchAllFn != nil {
		return m.fetchAllFn(ctx, songID)
	}
	return []model.Comment{}, nil
}

// fixedSet returns a fetcher that hands out a fresh copy of comments on every call,
// the way a remote store returns a new unordered batch.
func fixedSet(comments ...model.Comment) *mockFetcher {
	return &mockFetcher{
		fetchAllFn: func(ctx context.Context, songID string) ([]model.Comment, error) {
			out := make([]model.Comment, len(comments))
			copy(out, comments)
			return out, nil
		},
	}
}

func newTestAssembler(f Fetcher) *Assembler {
	return NewAssembler(f, logger.Discard())
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestAssembler_ThreeCommentsPageSizeTwo(t *testing.T) {
	// ARRANGE: C, A, B stored out of order
	fetcher := fixedSet(comment("C", 100), comment("A", 300), comment("B", 200))
	asm := newTestAssembler(fetcher)
	ctx := context.Background()

	// ACT
	first, err := asm.FirstPage(ctx, "song-1", 2)
	if err != nil {
		t.Fatalf("FirstPage failed: %v", err)
	}

	// ASSERT
	if got := ids(first.Items); !equalIDs(got, []string{"A", "B"}) {
		t.Errorf("first page = %v, want [A B]", got)
	}
	if !first.Next.Time().Equal(epoch.Add(200e9)) {
		t.Errorf("first cursor = %v, want t=200", first.Next.Time())
	}
	if !first.HasMore {
		t.Error("first page: expected HasMore")
	}

	second, err := asm.NextPage(ctx, "song-1", first.Next, 2)
	if err != nil {
		t.Fatalf("NextPage failed: %v", err)
	}
	if got := ids(second.Items); !equalIDs(got, []string{"C"}) {
		t.Errorf("second page = %v, want [C]", got)
	}
	if !second.Next.Time().Equal(epoch.Add(100e9)) {
		t.Errorf("second cursor = %v, want t=100", second.Next.Time())
	}
	if second.HasMore {
		t.Error("second page: expected no more")
	}
	if fetcher.calls != 2 {
		t.Errorf("FetchAll called %d times, want 2 (one full fetch per page)", fetcher.calls)
	}
}

func TestAssembler_EmptySet(t *testing.T) {
	asm := newTestAssembler(fixedSet())

	page, err := asm.FirstPage(context.Background(), "song-1", 20)
	if err != nil {
		t.Fatalf("FirstPage failed: %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("got %d items, want 0", len(page.Items))
	}
	if page.Items == nil {
		t.Error("items should be an empty slice, not nil")
	}
	if !page.Next.IsNone() {
		t.Errorf("cursor = %q, want none", page.Next.String())
	}
	if page.HasMore {
		t.Error("expected HasMore=false")
	}
}

func TestAssembler_CursorOlderThanEverything(t *testing.T) {
	asm := newTestAssembler(fixedSet(comment("A", 300), comment("B", 200)))

	page, err := asm.NextPage(context.Background(), "song-1", At(epoch.Add(50e9)), 10)
	if err != nil {
		t.Fatalf("NextPage failed: %v", err)
	}
	if len(page.Items) != 0 || page.HasMore || !page.Next.IsNone() {
		t.Errorf("page = %+v, want empty, no more, none cursor", page)
	}
}

func TestAssembler_NoneCursorIsFirstPage(t *testing.T) {
	asm := newTestAssembler(fixedSet(comment("A", 300), comment("B", 200)))

	page, err := asm.NextPage(context.Background(), "song-1", None(), 1)
	if err != nil {
		t.Fatalf("NextPage failed: %v", err)
	}
	if got := ids(page.Items); !equalIDs(got, []string{"A"}) {
		t.Errorf("page = %v, want [A]", got)
	}
}

func TestAssembler_MissingTimestampEndsPaging(t *testing.T) {
	asm := newTestAssembler(fixedSet(comment("A", 300), comment("pending", -1), comment("B", 200)))
	ctx := context.Background()

	first, err := asm.FirstPage(ctx, "song-1", 2)
	if err != nil {
		t.Fatalf("FirstPage failed: %v", err)
	}

	second, err := asm.NextPage(ctx, "song-1", first.Next, 2)
	if err != nil {
		t.Fatalf("NextPage failed: %v", err)
	}
	if got := ids(second.Items); !equalIDs(got, []string{"pending"}) {
		t.Errorf("second page = %v, want [pending]", got)
	}
	if second.HasMore || !second.Next.IsNone() {
		t.Errorf("second page should end paging, got HasMore=%v cursor=%q", second.HasMore, second.Next.String())
	}
}

// =============================================================================
// TRAVERSAL
// =============================================================================

func TestAssembler_TiedTimestampAcrossPageBoundaryIsSkipped(t *testing.T) {
	// ARRANGE: B and C share t=200 and the page boundary falls between them.
	fetcher := fixedSet(comment("A", 300), comment("B", 200), comment("C", 200), comment("D", 100))
	asm := newTestAssembler(fetcher)
	ctx := context.Background()

	// ACT
	first, err := asm.FirstPage(ctx, "song-1", 2)
	if err != nil {
		t.Fatalf("FirstPage failed: %v", err)
	}
	second, err := asm.NextPage(ctx, "song-1", first.Next, 2)
	if err != nil {
		t.Fatalf("NextPage failed: %v", err)
	}

	// ASSERT: resuming strictly earlier than t=200 steps over C.
	if got := ids(first.Items); !equalIDs(got, []string{"A", "B"}) {
		t.Fatalf("first page = %v, want [A B]", got)
	}
	if !first.Next.Time().Equal(epoch.Add(200e9)) {
		t.Errorf("first cursor = %v, want t=200", first.Next.Time())
	}
	if got := ids(second.Items); !equalIDs(got, []string{"D"}) {
		t.Errorf("second page = %v, want [D] (C skipped)", got)
	}
	if second.HasMore {
		t.Error("expected has_more=false on the last page")
	}
}

func TestAssembler_TiedTimestampsWithinOnePageAreKept(t *testing.T) {
	fetcher := fixedSet(comment("A", 300), comment("B", 200), comment("C", 200), comment("D", 100))
	asm := newTestAssembler(fetcher)

	first, err := asm.FirstPage(context.Background(), "song-1", 3)
	if err != nil {
		t.Fatalf("FirstPage failed: %v", err)
	}
	if got := ids(first.Items); !equalIDs(got, []string{"A", "B", "C"}) {
		t.Errorf("first page = %v, want [A B C]", got)
	}
}

func TestAssembler_FullTraversalVisitsEveryCommentOnce(t *testing.T) {
	for _, tc := range []struct {
		name     string
		total    int
		pageSize int
	}{
		{name: "partial last page", total: 23, pageSize: 5},
		{name: "exact multiple", total: 20, pageSize: 5},
		{name: "single page", total: 3, pageSize: 10},
		{name: "page size one", total: 4, pageSize: 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// Distinct timestamps, stored in a scrambled order.
			set := make([]model.Comment, 0, tc.total)
			for i := 0; i < tc.total; i++ {
				ts := (i * 7) % tc.total
				set = append(set, comment(string(rune('a'+ts%26))+string(rune('0'+ts/26)), ts*10))
			}
			asm := newTestAssembler(fixedSet(set...))
			ctx := context.Background()

			var seen []model.Comment
			page, err := asm.FirstPage(ctx, "song-1", tc.pageSize)
			for pages := 1; ; pages++ {
				if err != nil {
					t.Fatalf("page %d failed: %v", pages, err)
				}
				seen = append(seen, page.Items...)
				if !page.HasMore {
					break
				}
				if pages > tc.total+1 {
					t.Fatal("paging did not terminate")
				}
				page, err = asm.NextPage(ctx, "song-1", page.Next, tc.pageSize)
			}

			if len(seen) != tc.total {
				t.Fatalf("visited %d comments, want %d", len(seen), tc.total)
			}
			unique := make(map[string]bool, len(seen))
			for i, c := range seen {
				if unique[c.ID] {
					t.Errorf("comment %s returned twice", c.ID)
				}
				unique[c.ID] = true
				if i > 0 && Compare(seen[i-1], c) > 0 {
					t.Errorf("out of order at %d: %s before %s", i, seen[i-1].ID, c.ID)
				}
			}
		})
	}
}

// =============================================================================
// ERRORS
// =============================================================================

func TestAssembler_Errors(t *testing.T) {
	remoteErr := model.NewRemoteError("fetch comments", errors.New("deadline exceeded"))

	tests := []struct {
		name     string
		songID   string
		pageSize int
		fetchErr error
		wantErr  error
	}{
		{name: "zero page size", songID: "song-1", pageSize: 0, wantErr: model.ErrInvalidPageSize},
		{name: "negative page size", songID: "song-1", pageSize: -3, wantErr: model.ErrInvalidPageSize},
		{name: "missing song", songID: "", pageSize: 5, wantErr: model.ErrSongIDRequired},
		{name: "remote failure", songID: "song-1", pageSize: 5, fetchErr: remoteErr, wantErr: model.ErrRemoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockFetcher{
				fetchAllFn: func(ctx context.Context, songID string) ([]model.Comment, error) {
					return nil, tt.fetchErr
				},
			}
			asm := newTestAssembler(fetcher)

			_, err := asm.FirstPage(context.Background(), tt.songID, tt.pageSize)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.fetchErr != nil && err.Error() != "deadline exceeded" {
				t.Errorf("message = %q, want collaborator message verbatim", err.Error())
			}
		})
	}
}
