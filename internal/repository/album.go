package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"beomusic_backend/internal/docstore"
	"beomusic_backend/internal/model"
)

const (
	albumsCollection     = "albums"
	albumSongsCollection = "album_songs"
	songsCollection      = "songs"

	fieldTitle       = "title"
	fieldDescription = "description"
	fieldCoverURL    = "coverImageUrl"
	fieldSongCount   = "songCount"
	fieldCreatedDate = "createdDate"
	fieldUpdatedDate = "updatedDate"
	fieldAlbumID     = "albumId"
	fieldAddedDate   = "addedDate"
	fieldArtist      = "artist"
	fieldPreviewURL  = "previewUrl"

	songFetchLimit = 8
)

type membershipChange int

const (
	keepSong membershipChange = iota
	addSong
	removeSong
)

// membershipRule decides what a membership call does given whether the album
// exists and whether the song is already in it.
type membershipRule func(albumExists, inAlbum bool) (membershipChange, error)

type albumStore struct {
	store docstore.Store
	now   func() time.Time
}

func NewAlbumStore(store docstore.Store) AlbumStore {
	return &albumStore{store: store, now: time.Now}
}

func (r *albumStore) Create(ctx context.Context, userID string, req *model.CreateAlbumRequest) (*model.Album, error) {
	now := r.now()
	album := model.Album{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		CoverURL:    req.CoverURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(albumsCollection, album.ID, albumFields(album))
	})
	if err != nil {
		return nil, model.NewRemoteError("create album", err)
	}
	return &album, nil
}

func (r *albumStore) Get(ctx context.Context, albumID string) (*model.Album, error) {
	doc, err := r.store.Get(ctx, albumsCollection, albumID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, model.ErrAlbumNotFound
		}
		return nil, model.NewRemoteError("get album", err)
	}
	album := toAlbum(doc)
	return &album, nil
}

// ListByUser returns the user's albums, newest first. Like comments, albums
// are fetched with a single equality query and ordered here.
func (r *albumStore) ListByUser(ctx context.Context, userID string) ([]model.Album, error) {
	docs, err := r.store.Query(ctx, albumsCollection, fieldUserID, userID)
	if err != nil {
		return nil, model.NewRemoteError("list albums", err)
	}

	albums := make([]model.Album, 0, len(docs))
	for _, doc := range docs {
		albums = append(albums, toAlbum(doc))
	}
	sort.SliceStable(albums, func(i, j int) bool {
		return albums[i].CreatedAt.After(albums[j].CreatedAt)
	})
	return albums, nil
}

func (r *albumStore) Update(ctx context.Context, albumID, requesterID string, req *model.UpdateAlbumRequest) (*model.Album, error) {
	var album model.Album
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := r.ownedAlbum(tx, albumID, requesterID)
		if err != nil {
			return err
		}
		album = toAlbum(doc)
		if album.Favorites {
			return model.ErrFavoritesAlbumLocked
		}

		if req.Title != nil {
			album.Title = *req.Title
		}
		if req.Description != nil {
			album.Description = *req.Description
		}
		if req.CoverURL != nil {
			album.CoverURL = req.CoverURL
		}
		album.UpdatedAt = r.now()
		return tx.Set(albumsCollection, albumID, albumFields(album))
	})
	if err != nil {
		return nil, albumError("update album", err)
	}
	return &album, nil
}

// Delete removes the album in a transaction, then its entries. A failure
// after the album is gone leaves orphaned entries, which no listing reads.
func (r *albumStore) Delete(ctx context.Context, albumID, requesterID string) error {
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := r.ownedAlbum(tx, albumID, requesterID)
		if err != nil {
			return err
		}
		if toAlbum(doc).Favorites {
			return model.ErrFavoritesAlbumLocked
		}
		return tx.Delete(albumsCollection, albumID)
	})
	if err != nil {
		return albumError("delete album", err)
	}

	entries, err := r.store.Query(ctx, albumSongsCollection, fieldAlbumID, albumID)
	if err != nil {
		return model.NewRemoteError("delete album songs", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(songFetchLimit)
	for _, entry := range entries {
		id := entry.ID
		g.Go(func() error {
			return r.store.Delete(gctx, albumSongsCollection, id)
		})
	}
	if err := g.Wait(); err != nil {
		return model.NewRemoteError("delete album songs", err)
	}
	return nil
}

// AddSong adds the song to a regular album. Adding a song that is already
// there succeeds without changing the count.
func (r *albumStore) AddSong(ctx context.Context, albumID, requesterID string, song model.Song) (*model.Album, error) {
	album, _, err := r.changeMembership(ctx, albumID, requesterID, song, func(exists, inAlbum bool) (membershipChange, error) {
		if !exists {
			return keepSong, model.ErrAlbumNotFound
		}
		if inAlbum {
			return keepSong, nil
		}
		return addSong, nil
	})
	if err != nil {
		return nil, albumError("add song", err)
	}
	return album, nil
}

func (r *albumStore) RemoveSong(ctx context.Context, albumID, requesterID, songID string) (*model.Album, error) {
	album, _, err := r.changeMembership(ctx, albumID, requesterID, model.Song{ID: songID}, func(exists, inAlbum bool) (membershipChange, error) {
		if !exists {
			return keepSong, model.ErrAlbumNotFound
		}
		if !inAlbum {
			return keepSong, model.ErrSongNotInAlbum
		}
		return removeSong, nil
	})
	if err != nil {
		return nil, albumError("remove song", err)
	}
	return album, nil
}

// ListSongs returns the album's songs in the order they were added. Entries
// whose song document is missing come back with only the ID set.
func (r *albumStore) ListSongs(ctx context.Context, albumID string) ([]model.AlbumSong, error) {
	entries, err := r.store.Query(ctx, albumSongsCollection, fieldAlbumID, albumID)
	if err != nil {
		return nil, model.NewRemoteError("list album songs", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time(fieldAddedDate).Before(entries[j].Time(fieldAddedDate))
	})

	songs := make([]model.AlbumSong, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(songFetchLimit)
	for i, entry := range entries {
		songs[i] = model.AlbumSong{
			Song:    model.Song{ID: entry.String(fieldSongID)},
			AddedAt: entry.Time(fieldAddedDate),
		}
		g.Go(func() error {
			doc, err := r.store.Get(gctx, songsCollection, songs[i].ID)
			if errors.Is(err, docstore.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			songs[i].Song = toSong(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, model.NewRemoteError("list album songs", err)
	}
	return songs, nil
}

// AddFavorite adds the song to the user's favorites album, creating the album
// on first use. Returns the favorites album.
func (r *albumStore) AddFavorite(ctx context.Context, userID string, song model.Song) (*model.Album, error) {
	album, _, err := r.changeMembership(ctx, model.FavoritesAlbumID(userID), userID, song, func(_, inAlbum bool) (membershipChange, error) {
		if inAlbum {
			return keepSong, nil
		}
		return addSong, nil
	})
	if err != nil {
		return nil, albumError("add favorite", err)
	}
	return album, nil
}

// RemoveFavorite succeeds when the song was never a favorite.
func (r *albumStore) RemoveFavorite(ctx context.Context, userID, songID string) error {
	_, _, err := r.changeMembership(ctx, model.FavoritesAlbumID(userID), userID, model.Song{ID: songID}, func(_, inAlbum bool) (membershipChange, error) {
		if inAlbum {
			return removeSong, nil
		}
		return keepSong, nil
	})
	return albumError("remove favorite", err)
}

// ToggleFavorite flips the song's favorite state and reports the new state.
func (r *albumStore) ToggleFavorite(ctx context.Context, userID string, song model.Song) (bool, error) {
	_, change, err := r.changeMembership(ctx, model.FavoritesAlbumID(userID), userID, song, func(_, inAlbum bool) (membershipChange, error) {
		if inAlbum {
			return removeSong, nil
		}
		return addSong, nil
	})
	if err != nil {
		return false, albumError("toggle favorite", err)
	}
	return change == addSong, nil
}

func (r *albumStore) IsFavorite(ctx context.Context, userID, songID string) (bool, error) {
	_, err := r.store.Get(ctx, albumSongsCollection, albumSongID(model.FavoritesAlbumID(userID), songID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, docstore.ErrNotFound):
		return false, nil
	default:
		return false, model.NewRemoteError("check favorite", err)
	}
}

// changeMembership reads the album and the entry, applies rule, then writes
// the entry and the album's count in the same transaction. A missing album
// is created only when it is the requester's favorites album.
func (r *albumStore) changeMembership(ctx context.Context, albumID, requesterID string, song model.Song, rule membershipRule) (*model.Album, membershipChange, error) {
	if song.ID == "" || strings.Contains(song.ID, "/") {
		return nil, keepSong, model.ErrInvalidSongID
	}
	entryID := albumSongID(albumID, song.ID)

	var (
		album  *model.Album
		change membershipChange
	)
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		album, change = nil, keepSong
		now := r.now()

		doc, err := tx.Get(albumsCollection, albumID)
		exists := err == nil
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		if exists && doc.String(fieldUserID) != requesterID {
			return model.ErrNotAlbumOwner
		}

		_, err = tx.Get(albumSongsCollection, entryID)
		inAlbum := err == nil
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}

		change, err = rule(exists, inAlbum)
		if err != nil {
			return err
		}

		var current model.Album
		switch {
		case exists:
			current = toAlbum(doc)
		case change == addSong && albumID == model.FavoritesAlbumID(requesterID):
			current = newFavoritesAlbum(requesterID, now)
		default:
			return nil
		}
		album = &current

		switch change {
		case keepSong:
			return nil
		case addSong:
			entry := map[string]interface{}{
				fieldAlbumID:   albumID,
				fieldSongID:    song.ID,
				fieldAddedDate: now,
			}
			if err := tx.Set(albumSongsCollection, entryID, entry); err != nil {
				return err
			}
			if song.Title != "" || song.Artist != "" {
				if err := tx.Set(songsCollection, song.ID, songFields(song)); err != nil {
					return err
				}
			}
			current.SongCount++
		case removeSong:
			if err := tx.Delete(albumSongsCollection, entryID); err != nil {
				return err
			}
			if current.SongCount > 0 {
				current.SongCount--
			}
		}
		current.UpdatedAt = now
		return tx.Set(albumsCollection, albumID, albumFields(current))
	})
	if err != nil {
		return nil, keepSong, err
	}
	return album, change, nil
}

func (r *albumStore) ownedAlbum(tx docstore.Tx, albumID, requesterID string) (docstore.Document, error) {
	doc, err := tx.Get(albumsCollection, albumID)
	if err != nil {
		return docstore.Document{}, err
	}
	if doc.String(fieldUserID) != requesterID {
		return docstore.Document{}, model.ErrNotAlbumOwner
	}
	return doc, nil
}

// albumError passes domain errors through and wraps store failures.
func albumError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return model.ErrAlbumNotFound
	case errors.Is(err, model.ErrAlbumNotFound),
		errors.Is(err, model.ErrNotAlbumOwner),
		errors.Is(err, model.ErrSongNotInAlbum),
		errors.Is(err, model.ErrFavoritesAlbumLocked),
		errors.Is(err, model.ErrInvalidSongID):
		return err
	default:
		return model.NewRemoteError(op, err)
	}
}

func albumSongID(albumID, songID string) string {
	return albumID + "_" + songID
}

func newFavoritesAlbum(userID string, now time.Time) model.Album {
	return model.Album{
		ID:          model.FavoritesAlbumID(userID),
		UserID:      userID,
		Title:       model.FavoritesAlbumTitle,
		Description: model.FavoritesAlbumDescription,
		Favorites:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func albumFields(a model.Album) map[string]interface{} {
	fields := map[string]interface{}{
		fieldUserID:      a.UserID,
		fieldTitle:       a.Title,
		fieldDescription: a.Description,
		fieldSongCount:   a.SongCount,
		fieldCreatedDate: a.CreatedAt,
		fieldUpdatedDate: a.UpdatedAt,
	}
	if a.CoverURL != nil {
		fields[fieldCoverURL] = *a.CoverURL
	}
	return fields
}

func toAlbum(doc docstore.Document) model.Album {
	userID := doc.String(fieldUserID)
	return model.Album{
		ID:          doc.ID,
		UserID:      userID,
		Title:       doc.String(fieldTitle),
		Description: doc.String(fieldDescription),
		CoverURL:    doc.OptionalString(fieldCoverURL),
		SongCount:   doc.Int(fieldSongCount),
		Favorites:   doc.ID == model.FavoritesAlbumID(userID),
		CreatedAt:   doc.Time(fieldCreatedDate),
		UpdatedAt:   doc.Time(fieldUpdatedDate),
	}
}

func songFields(s model.Song) map[string]interface{} {
	fields := map[string]interface{}{
		fieldSongID: s.ID,
		fieldTitle:  s.Title,
		fieldArtist: s.Artist,
	}
	if s.PreviewURL != nil {
		fields[fieldPreviewURL] = *s.PreviewURL
	}
	return fields
}

func toSong(doc docstore.Document) model.Song {
	return model.Song{
		ID:         doc.ID,
		Title:      doc.String(fieldTitle),
		Artist:     doc.String(fieldArtist),
		PreviewURL: doc.OptionalString(fieldPreviewURL),
	}
}
