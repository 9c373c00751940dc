// Package queue derives the play order of a session's queue.
package queue

import (
	"cmp"
	"slices"

	"github.com/party-queue-system/pkg/models"
)

// Sort returns a new slice ordered by net score, highest first. Songs with
// equal scores keep their input order, so earlier submissions win ties.
func Sort(songs []models.Song) []models.Song {
	out := make([]models.Song, len(songs))
	copy(out, songs)
	slices.SortStableFunc(out, func(a, b models.Song) int {
		return cmp.Compare(b.NetScore, a.NetScore)
	})
	return out
}

// IndexOf returns the position of the song with the given id, or -1.
func IndexOf(songs []models.Song, id string) int {
	return slices.IndexFunc(songs, func(s models.Song) bool {
		return s.ID == id
	})
}
