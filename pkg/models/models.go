package models

import (
	"time"
)

type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// Valid reports whether v is one of the two vote directions.
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

type Song struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Artist      string              `json:"artist"`
	SubmittedBy string              `json:"submittedBy"`
	SubmittedAt time.Time           `json:"submittedAt"`
	Upvotes     int                 `json:"upvotes"`
	Downvotes   int                 `json:"downvotes"`
	NetScore    int                 `json:"netScore"`
	Voters      map[string]VoteType `json:"voters"`
}

type Session struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	HostName   string    `json:"hostName"`
	CreatedAt  time.Time `json:"createdAt"`
	NowPlaying *Song     `json:"nowPlaying"`
	Queue      []Song    `json:"queue"`
	History    []Song    `json:"history"` // most recently played first
}

// CurrentUser is the identity a single browser holds. Names are not unique:
// two participants using the same name vote as one voter.
type CurrentUser struct {
	Name        string `json:"name"`
	SessionCode string `json:"sessionCode"`
	IsHost      bool   `json:"isHost"`
}

// Clone returns a deep copy so callers can mutate the result freely.
func (s Song) Clone() Song {
	voters := make(map[string]VoteType, len(s.Voters))
	for name, v := range s.Voters {
		voters[name] = v
	}
	s.Voters = voters
	return s
}

// Clone returns a deep copy of the session, including every song.
func (s *Session) Clone() *Session {
	out := *s
	if s.NowPlaying != nil {
		np := s.NowPlaying.Clone()
		out.NowPlaying = &np
	}
	out.Queue = cloneSongs(s.Queue)
	out.History = cloneSongs(s.History)
	return &out
}

func cloneSongs(songs []Song) []Song {
	out := make([]Song, len(songs))
	for i, song := range songs {
		out[i] = song.Clone()
	}
	return out
}
