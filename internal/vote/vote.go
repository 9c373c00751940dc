// Package vote applies a single participant's up/down vote to a song.
package vote

import (
	"github.com/party-queue-system/pkg/models"
)

// Outcome describes what Apply did with a requested vote.
type Outcome string

const (
	// Applied means the counters and voter map changed.
	Applied Outcome = "applied"
	// RejectedDuplicate means the voter already holds the requested vote.
	RejectedDuplicate Outcome = "rejected-duplicate"
)

// Apply records voter's vote on song and returns the updated copy. It never
// touches the input song and never looks at any other song; re-ranking the
// queue is the caller's job.
//
// A repeat of the voter's current vote is rejected without changes. Switching
// direction removes the previous contribution before adding the new one, so a
// flip moves the net score by two.
func Apply(song models.Song, voter string, requested models.VoteType) (models.Song, Outcome) {
	existing, voted := song.Voters[voter]
	if voted && existing == requested {
		return song, RejectedDuplicate
	}

	next := song.Clone()
	if voted {
		switch existing {
		case models.VoteUp:
			next.Upvotes--
		case models.VoteDown:
			next.Downvotes--
		}
	}

	switch requested {
	case models.VoteUp:
		next.Upvotes++
	case models.VoteDown:
		next.Downvotes++
	}

	next.Voters[voter] = requested
	next.NetScore = next.Upvotes - next.Downvotes
	return next, Applied
}
