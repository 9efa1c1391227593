package repository

import (
	"context"
	"errors"

	"beomusic_backend/internal/docstore"
	"beomusic_backend/internal/model"
)

// Collection and field names match the documents the mobile app already writes.
const (
	commentsCollection = "comments"

	fieldUserID       = "userId"
	fieldSongID       = "songId"
	fieldContent      = "content"
	fieldUsername     = "username"
	fieldUserPhotoURL = "userPhotoUrl"
)

type commentStore struct {
	store docstore.Store
}

func NewCommentStore(store docstore.Store) CommentStore {
	return &commentStore{store: store}
}

// FetchAll runs a single equality query on songId. The collection has no
// composite index, so ordering and limits are applied by the caller.
func (r *commentStore) FetchAll(ctx context.Context, songID string) ([]model.Comment, error) {
	if songID == "" {
		return nil, model.ErrSongIDRequired
	}

	docs, err := r.store.Query(ctx, commentsCollection, fieldSongID, songID)
	if err != nil {
		return nil, model.NewRemoteError("fetch comments", err)
	}

	comments := make([]model.Comment, 0, len(docs))
	for _, doc := range docs {
		comments = append(comments, toComment(doc))
	}
	return comments, nil
}

// Insert writes the comment with the author's profile copied in.
// There is no idempotency key: a retry after a timeout can store a duplicate.
func (r *commentStore) Insert(ctx context.Context, songID, content string, author model.CommentAuthor) (*model.Comment, error) {
	if author.UserID == "" {
		return nil, model.ErrUnauthenticated
	}
	if songID == "" {
		return nil, model.ErrSongIDRequired
	}

	username := author.Username
	if username == "" {
		username = model.AnonymousUsername
	}

	fields := map[string]interface{}{
		fieldUserID:   author.UserID,
		fieldSongID:   songID,
		fieldContent:  content,
		fieldUsername: username,
	}
	if author.PhotoURL != nil {
		fields[fieldUserPhotoURL] = *author.PhotoURL
	}

	doc, err := r.store.Insert(ctx, commentsCollection, fields)
	if err != nil {
		return nil, model.NewRemoteError("insert comment", err)
	}

	comment := toComment(doc)
	return &comment, nil
}

// Delete checks ownership and deletes inside one conditional delete, so the
// record cannot change hands between the check and the write.
func (r *commentStore) Delete(ctx context.Context, commentID, requesterID string) error {
	if requesterID == "" {
		return model.ErrUnauthenticated
	}
	if commentID == "" {
		return model.ErrCommentNotFound
	}

	err := r.store.DeleteIf(ctx, commentsCollection, commentID, func(doc docstore.Document) error {
		if doc.String(fieldUserID) != requesterID {
			return model.ErrNotCommentOwner
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return model.ErrCommentNotFound
	case errors.Is(err, model.ErrNotCommentOwner):
		return model.ErrNotCommentOwner
	default:
		return model.NewRemoteError("delete comment", err)
	}
}

func toComment(doc docstore.Document) model.Comment {
	username := doc.String(fieldUsername)
	if username == "" {
		username = model.AnonymousUsername
	}
	return model.Comment{
		ID:           doc.ID,
		SongID:       doc.String(fieldSongID),
		UserID:       doc.String(fieldUserID),
		Content:      doc.String(fieldContent),
		Username:     username,
		UserPhotoURL: doc.OptionalString(fieldUserPhotoURL),
		CreatedAt:    doc.CreatedAt,
	}
}
