package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/metrics"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/repository"
)

// LibraryService manages a user's albums and favorites. Albums are private:
// every read and write checks that the caller owns the album.
type LibraryService struct {
	albums repository.AlbumStore
	log    *logrus.Entry
}

func NewLibraryService(albums repository.AlbumStore, log *logrus.Logger) *LibraryService {
	return &LibraryService{
		albums: albums,
		log:    logger.Component(log, "LibraryService"),
	}
}

func (s *LibraryService) CreateAlbum(ctx context.Context, userID string, req *model.CreateAlbumRequest) (album *model.Album, err error) {
	defer observe("create_album", &err)

	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, model.ErrAlbumTitleRequired
	}
	if err := validateAlbumText(&req.Title, &req.Description); err != nil {
		return nil, err
	}

	album, err = s.albums.Create(ctx, userID, req)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("create album failed")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "album_id": album.ID}).Info("album created")
	return album, nil
}

func (s *LibraryService) ListAlbums(ctx context.Context, userID string) ([]model.Album, error) {
	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	return s.albums.ListByUser(ctx, userID)
}

func (s *LibraryService) GetAlbum(ctx context.Context, userID, albumID string) (*model.Album, error) {
	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	album, err := s.albums.Get(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if album.UserID != userID {
		return nil, model.ErrNotAlbumOwner
	}
	return album, nil
}

func (s *LibraryService) UpdateAlbum(ctx context.Context, userID, albumID string, req *model.UpdateAlbumRequest) (album *model.Album, err error) {
	defer observe("update_album", &err)

	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, model.ErrAlbumTitleRequired
		}
		req.Title = &title
	}
	if err := validateAlbumText(req.Title, req.Description); err != nil {
		return nil, err
	}

	return s.albums.Update(ctx, albumID, userID, req)
}

func (s *LibraryService) DeleteAlbum(ctx context.Context, userID, albumID string) (err error) {
	defer observe("delete_album", &err)

	if userID == "" {
		return model.ErrUnauthenticated
	}
	if err := s.albums.Delete(ctx, albumID, userID); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "album_id": albumID}).Info("album deleted")
	return nil
}

// AlbumSongs lists the songs in one of the caller's albums, oldest first.
func (s *LibraryService) AlbumSongs(ctx context.Context, userID, albumID string) ([]model.AlbumSong, error) {
	if _, err := s.GetAlbum(ctx, userID, albumID); err != nil {
		return nil, err
	}
	return s.albums.ListSongs(ctx, albumID)
}

// AddSong adds a song to one of the caller's albums. Adding a song that is
// already there leaves the album unchanged.
func (s *LibraryService) AddSong(ctx context.Context, userID, albumID string, req *model.AddSongRequest) (album *model.Album, err error) {
	defer observe("add_song", &err)

	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	if albumID == model.FavoritesAlbumID(userID) {
		return s.albums.AddFavorite(ctx, userID, req.Song())
	}
	return s.albums.AddSong(ctx, albumID, userID, req.Song())
}

func (s *LibraryService) RemoveSong(ctx context.Context, userID, albumID, songID string) (album *model.Album, err error) {
	defer observe("remove_song", &err)

	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	return s.albums.RemoveSong(ctx, albumID, userID, songID)
}

// Favorites lists the caller's favorite songs. A user who never added one has
// no favorites album yet and gets an empty list.
func (s *LibraryService) Favorites(ctx context.Context, userID string) ([]model.AlbumSong, error) {
	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	return s.albums.ListSongs(ctx, model.FavoritesAlbumID(userID))
}

func (s *LibraryService) AddFavorite(ctx context.Context, userID string, song model.Song) (err error) {
	defer observe("add_favorite", &err)

	if userID == "" {
		return model.ErrUnauthenticated
	}
	if _, err := s.albums.AddFavorite(ctx, userID, song); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "song_id": song.ID}).Debug("favorite added")
	return nil
}

func (s *LibraryService) RemoveFavorite(ctx context.Context, userID, songID string) (err error) {
	defer observe("remove_favorite", &err)

	if userID == "" {
		return model.ErrUnauthenticated
	}
	return s.albums.RemoveFavorite(ctx, userID, songID)
}

// ToggleFavorite flips the song's favorite state and returns the new state.
func (s *LibraryService) ToggleFavorite(ctx context.Context, userID string, song model.Song) (status *model.FavoriteStatus, err error) {
	defer observe("toggle_favorite", &err)

	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	on, err := s.albums.ToggleFavorite(ctx, userID, song)
	if err != nil {
		return nil, err
	}
	return &model.FavoriteStatus{SongID: song.ID, IsFavorite: on}, nil
}

func (s *LibraryService) IsFavorite(ctx context.Context, userID, songID string) (*model.FavoriteStatus, error) {
	if userID == "" {
		return nil, model.ErrUnauthenticated
	}
	on, err := s.albums.IsFavorite(ctx, userID, songID)
	if err != nil {
		return nil, err
	}
	return &model.FavoriteStatus{SongID: songID, IsFavorite: on}, nil
}

func observe(op string, err *error) {
	metrics.LibraryOps.WithLabelValues(op, metrics.Outcome(*err)).Inc()
}

func validateAlbumText(title, description *string) error {
	if title != nil && utf8.RuneCountInString(*title) > model.MaxAlbumTitleLength {
		return model.ErrAlbumTitleTooLong
	}
	if description != nil && utf8.RuneCountInString(*description) > model.MaxAlbumDescriptionLength {
		return model.ErrAlbumDescTooLong
	}
	return nil
}
