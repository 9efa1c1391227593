package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"beomusic_backend/internal/docstore"
	"beomusic_backend/internal/model"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestAlbumStore(t *testing.T) (*albumStore, *docstore.MemoryStore) {
	t.Helper()
	mem := docstore.NewMemoryStore()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	store := &albumStore{
		store: mem,
		now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	}
	return store, mem
}

func createAlbum(t *testing.T, store *albumStore, userID, title string) *model.Album {
	t.Helper()
	album, err := store.Create(context.Background(), userID, &model.CreateAlbumRequest{Title: title})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return album
}

func songCount(t *testing.T, store *albumStore, albumID string) int64 {
	t.Helper()
	album, err := store.Get(context.Background(), albumID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return album.SongCount
}

// =============================================================================
// Albums
// =============================================================================

func TestAlbumStore_CreateAndList(t *testing.T) {
	store, _ := newTestAlbumStore(t)
	ctx := context.Background()

	first := createAlbum(t, store, "user-1", "Road trip")
	second := createAlbum(t, store, "user-1", "Focus")
	createAlbum(t, store, "user-2", "Other")

	albums, err := store.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(albums) != 2 {
		t.Fatalf("got %d albums, want 2", len(albums))
	}
	if albums[0].ID != second.ID || albums[1].ID != first.ID {
		t.Errorf("albums not newest first: %s, %s", albums[0].Title, albums[1].Title)
	}
	if albums[0].Favorites {
		t.Error("regular album reported as favorites")
	}
}

func TestAlbumStore_Get_NotFound(t *testing.T) {
	store, _ := newTestAlbumStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, model.ErrAlbumNotFound) {
		t.Errorf("expected ErrAlbumNotFound, got %v", err)
	}
}

func TestAlbumStore_Update(t *testing.T) {
	store, _ := newTestAlbumStore(t)
	ctx := context.Background()
	album := createAlbum(t, store, "user-1", "Old")
	title := "New"

	t.Run("owner updates title", func(t *testing.T) {
		updated, err := store.Update(ctx, album.ID, "user-1", &model.UpdateAlbumRequest{Title: &title})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Title != "New" {
			t.Errorf("Title = %q, want New", updated.Title)
		}
		if !updated.UpdatedAt.After(album.UpdatedAt) {
			t.Error("UpdatedAt should advance")
		}
	})

	t.Run("other user is rejected", func(t *testing.T) {
		_, err := store.Update(ctx, album.ID, "user-2", &model.UpdateAlbumRequest{Title: &title})
		if !errors.Is(err, model.ErrNotAlbumOwner) {
			t.Errorf("expected ErrNotAlbumOwner, got %v", err)
		}
	})

	t.Run("missing album", func(t *testing.T) {
		_, err := store.Update(ctx, "missing", "user-1", &model.UpdateAlbumRequest{Title: &title})
		if !errors.Is(err, model.ErrAlbumNotFound) {
			t.Errorf("expected ErrAlbumNotFound, got %v", err)
		}
	})
}

func TestAlbumStore_DeleteRemovesEntries(t *testing.T) {
	store, mem := newTestAlbumStore(t)
	ctx := context.Background()
	album := createAlbum(t, store, "user-1", "Mix")
	other := createAlbum(t, store, "user-1", "Keep")

	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := store.AddSong(ctx, album.ID, "user-1", model.Song{ID: id}); err != nil {
			t.Fatalf("AddSong failed: %v", err)
		}
	}
	if _, err := store.AddSong(ctx, other.ID, "user-1", model.Song{ID: "s1"}); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	if err := store.Delete(ctx, album.ID, "user-2"); !errors.Is(err, model.ErrNotAlbumOwner) {
		t.Fatalf("expected ErrNotAlbumOwner, got %v", err)
	}
	if err := store.Delete(ctx, album.ID, "user-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(ctx, album.ID); !errors.Is(err, model.ErrAlbumNotFound) {
		t.Errorf("album still present: %v", err)
	}
	if mem.Len(albumSongsCollection) != 1 {
		t.Errorf("album_songs has %d entries, want 1 (other album only)", mem.Len(albumSongsCollection))
	}
}

// =============================================================================
// Membership
// =============================================================================

func TestAlbumStore_SongCountFollowsMembership(t *testing.T) {
	store, _ := newTestAlbumStore(t)
	ctx := context.Background()
	album := createAlbum(t, store, "user-1", "Mix")

	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := store.AddSong(ctx, album.ID, "user-1", model.Song{ID: id}); err != nil {
			t.Fatalf("AddSong(%s) failed: %v", id, err)
		}
	}
	if got := songCount(t, store, album.ID); got != 3 {
		t.Fatalf("SongCount = %d, want 3", got)
	}

	updated, err := store.RemoveSong(ctx, album.ID, "user-1", "s2")
	if err != nil {
		t.Fatalf("RemoveSong failed: %v", err)
	}
	if updated.SongCount != 2 {
		t.Errorf("returned SongCount = %d, want 2", updated.SongCount)
	}

	songs, err := store.ListSongs(ctx, album.ID)
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if int64(len(songs)) != songCount(t, store, album.ID) {
		t.Errorf("%d entries but SongCount = %d", len(songs), songCount(t, store, album.ID))
	}
}

func TestAlbumStore_AddSongTwiceIsIdempotent(t *testing.T) {
	store, mem := newTestAlbumStore(t)
	ctx := context.Background()
	album := createAlbum(t, store, "user-1", "Mix")
	song := model.Song{ID: "s1", Title: "Song", Artist: "Band"}

	for i := 0; i < 2; i++ {
		got, err := store.AddSong(ctx, album.ID, "user-1", song)
		if err != nil {
			t.Fatalf("AddSong #%d failed: %v", i+1, err)
		}
		if got.SongCount != 1 {
			t.Errorf("AddSong #%d SongCount = %d, want 1", i+1, got.SongCount)
		}
	}

	if mem.Len(albumSongsCollection) != 1 {
		t.Errorf("album_songs has %d entries, want 1", mem.Len(albumSongsCollection))
	}
	if got := songCount(t, store, album.ID); got != 1 {
		t.Errorf("stored SongCount = %d, want 1", got)
	}
}

func TestAlbumStore_ConcurrentAddsKeepCount(t *testing.T) {
	store, _ := newTestAlbumStore(t)
	ctx := context.Background()
	album := createAlbum(t, store, "user-1", "Mix")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := store.AddSong(ctx, album.ID, "user-1", model.Song{ID: id}); err != nil {
				t.Errorf("AddSong failed: %v", err)
			}
		}([]string{"s1", "s2", "s3", "s4"}[i%4])
	}
	wg.Wait()

	if got := songCount(t, store, album.ID); got != 4 {
		t.Errorf("SongCount = %d, want 4", got)
	}
}

func TestAlbumStore_RemoveSong_NotInAlbum(t *testing.T) {
	store, _ := newTestAlbumStore(t)
	album := createAlbum(t, store, "user-1", "Mix")

	_, err := store.RemoveSong(context.Background(), album.ID, "user-1", "s1")
	if !errors.Is(err, model.ErrSongNotInAlbum) {
		t.Errorf("expected ErrSongNotInAlbum, got %v", err)
	}
	if got := songCount(t, store, album.ID); got != 0 {
		t.Errorf("SongCount = %d, want 0", got)
	}
}

func TestAlbumStore_AddSong_Errors(t *testing.T) {
	store, _ := newTestAlbumStore(t)
	album := createAlbum(t, store, "user-1", "Mix")

	tests := []struct {
		name    string
		albumID string
		userID  string
		songID  string
		wantErr error
	}{
		{"missing album", "missing", "user-1", "s1", model.ErrAlbumNotFound},
		{"not owner", album.ID, "user-2", "s1", model.ErrNotAlbumOwner},
		{"empty song id", album.ID, "user-1", "", model.ErrInvalidSongID},
		{"song id with slash", album.ID, "user-1", "a/b", model.ErrInvalidSongID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.AddSong(context.Background(), tt.albumID, tt.userID, model.Song{ID: tt.songID})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAlbumStore_ListSongs_OrderAndMetadata(t *testing.T) {
	store, _ := newTestAlbumStore(t)
	ctx := context.Background()
	album := createAlbum(t, store, "user-1", "Mix")

	if _, err := store.AddSong(ctx, album.ID, "user-1", model.Song{ID: "s2", Title: "Second", Artist: "B"}); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if _, err := store.AddSong(ctx, album.ID, "user-1", model.Song{ID: "s1"}); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	songs, err := store.ListSongs(ctx, album.ID)
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("got %d songs, want 2", len(songs))
	}
	if songs[0].ID != "s2" || songs[0].Title != "Second" {
		t.Errorf("first song = %+v, want s2 with metadata", songs[0])
	}
	if songs[1].ID != "s1" || songs[1].Title != "" {
		t.Errorf("second song = %+v, want bare s1", songs[1])
	}
}

// =============================================================================
// Favorites
// =============================================================================

func TestAlbumStore_AddFavoriteCreatesAlbum(t *testing.T) {
	store, _ := newTestAlbumStore(t)
	ctx := context.Background()

	album, err := store.AddFavorite(ctx, "user-1", model.Song{ID: "s1"})
	if err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}
	if album.ID != model.FavoritesAlbumID("user-1") || !album.Favorites {
		t.Errorf("unexpected album %+v", album)
	}
	if album.Title != model.FavoritesAlbumTitle {
		t.Errorf("Title = %q", album.Title)
	}

	again, err := store.AddFavorite(ctx, "user-1", model.Song{ID: "s1"})
	if err != nil {
		t.Fatalf("second AddFavorite failed: %v", err)
	}
	if again.SongCount != 1 {
		t.Errorf("SongCount = %d after duplicate favorite, want 1", again.SongCount)
	}

	fav, err := store.IsFavorite(ctx, "user-1", "s1")
	if err != nil || !fav {
		t.Errorf("IsFavorite = %v, %v; want true", fav, err)
	}
}

func TestAlbumStore_RemoveFavorite_Missing(t *testing.T) {
	store, mem := newTestAlbumStore(t)

	if err := store.RemoveFavorite(context.Background(), "user-1", "s1"); err != nil {
		t.Fatalf("RemoveFavorite failed: %v", err)
	}
	if mem.Len(albumsCollection) != 0 {
		t.Error("removing a favorite should not create the favorites album")
	}
}

func TestAlbumStore_ToggleFavorite(t *testing.T) {
	store, _ := newTestAlbumStore(t)
	ctx := context.Background()
	favID := model.FavoritesAlbumID("user-1")

	on, err := store.ToggleFavorite(ctx, "user-1", model.Song{ID: "s1"})
	if err != nil || !on {
		t.Fatalf("first toggle = %v, %v; want true", on, err)
	}
	if got := songCount(t, store, favID); got != 1 {
		t.Errorf("SongCount = %d, want 1", got)
	}

	on, err = store.ToggleFavorite(ctx, "user-1", model.Song{ID: "s1"})
	if err != nil || on {
		t.Fatalf("second toggle = %v, %v; want false", on, err)
	}
	if got := songCount(t, store, favID); got != 0 {
		t.Errorf("SongCount = %d, want 0", got)
	}

	fav, err := store.IsFavorite(ctx, "user-1", "s1")
	if err != nil || fav {
		t.Errorf("IsFavorite = %v, %v; want false", fav, err)
	}
}

func TestAlbumStore_FavoritesAlbumIsLocked(t *testing.T) {
	store, _ := newTestAlbumStore(t)
	ctx := context.Background()
	album, err := store.AddFavorite(ctx, "user-1", model.Song{ID: "s1"})
	if err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}
	title := "Mine"

	if _, err := store.Update(ctx, album.ID, "user-1", &model.UpdateAlbumRequest{Title: &title}); !errors.Is(err, model.ErrFavoritesAlbumLocked) {
		t.Errorf("Update: expected ErrFavoritesAlbumLocked, got %v", err)
	}
	if err := store.Delete(ctx, album.ID, "user-1"); !errors.Is(err, model.ErrFavoritesAlbumLocked) {
		t.Errorf("Delete: expected ErrFavoritesAlbumLocked, got %v", err)
	}
}

func TestAlbumStore_RemoteFailure(t *testing.T) {
	backendErr := errors.New("unavailable")
	store := &albumStore{store: &failingStore{err: backendErr}, now: time.Now}
	ctx := context.Background()

	if _, err := store.AddSong(ctx, "a1", "user-1", model.Song{ID: "s1"}); !errors.Is(err, model.ErrRemoteUnavailable) {
		t.Errorf("AddSong: expected remote error, got %v", err)
	}
	if _, err := store.ListSongs(ctx, "a1"); !errors.Is(err, model.ErrRemoteUnavailable) {
		t.Errorf("ListSongs: expected remote error, got %v", err)
	}
	if _, err := store.IsFavorite(ctx, "user-1", "s1"); !errors.Is(err, model.ErrRemoteUnavailable) {
		t.Errorf("IsFavorite: expected remote error, got %v", err)
	}
}
