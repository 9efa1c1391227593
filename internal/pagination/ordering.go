// Package pagination orders a song's comments and slices them into pages.
//
// The comment collection is only indexed for single-field equality, so every
// page is built from a full unordered fetch that is sorted and sliced here.
package pagination

import (
	"slices"

	"beomusic_backend/internal/model"
)

// Compare orders comments newest first. A comment without a timestamp sorts
// after every comment that has one; two such comments compare equal.
func Compare(a, b model.Comment) int {
	switch {
	case a.CreatedAt == nil && b.CreatedAt == nil:
		return 0
	case a.CreatedAt == nil:
		return 1
	case b.CreatedAt == nil:
		return -1
	}
	return b.CreatedAt.Compare(*a.CreatedAt)
}

// Sort orders comments in place using Compare. Equal elements keep their input order.
func Sort(comments []model.Comment) {
	slices.SortStableFunc(comments, Compare)
}
