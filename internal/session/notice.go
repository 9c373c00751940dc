package session

import (
	"errors"
	"fmt"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeError   NoticeKind = "error"
)

// Notice is a short message the presentation layer may show for an outcome.
type Notice struct {
	Kind    NoticeKind `json:"type"`
	Message string     `json:"message"`
}

// Notice returns the message for a completed operation, or nil when the
// outcome is not worth surfacing (a plain applied vote, a no-op).
func (r *Result) Notice() *Notice {
	if r == nil {
		return nil
	}
	switch r.Outcome {
	case OutcomeRejectedDuplicate:
		return &Notice{Kind: NoticeInfo, Message: "You already voted that way!"}
	case OutcomeApplied:
	default:
		return nil
	}

	switch r.Op {
	case OpAddSong:
		if r.Song != nil {
			return &Notice{Kind: NoticeSuccess, Message: fmt.Sprintf("%q added to the queue!", r.Song.Title)}
		}
	case OpRemoveSong:
		return &Notice{Kind: NoticeInfo, Message: "Song removed from queue."}
	case OpPlayNext:
		if r.Song != nil {
			return &Notice{Kind: NoticeSuccess, Message: fmt.Sprintf("Now playing: %q", r.Song.Title)}
		}
	case OpClearQueue:
		return &Notice{Kind: NoticeInfo, Message: "Queue cleared."}
	}
	return nil
}

// ErrorNotice converts an operation error into a user-facing message.
func ErrorNotice(op Op, err error) *Notice {
	var verr *ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		return &Notice{Kind: NoticeError, Message: verr.Message}
	case errors.Is(err, ErrSessionNotFound):
		return &Notice{Kind: NoticeError, Message: "Session not found. Check the code and try again."}
	case errors.Is(err, ErrUnauthorized):
		return &Notice{Kind: NoticeError, Message: "Only the host can do that."}
	}

	switch op {
	case OpCreateSession:
		return &Notice{Kind: NoticeError, Message: "Failed to create session. Please try again."}
	case OpJoinSession:
		return &Notice{Kind: NoticeError, Message: "Failed to join session. Please try again."}
	case OpAddSong:
		return &Notice{Kind: NoticeError, Message: "Failed to add song. Please try again."}
	case OpVote:
		return &Notice{Kind: NoticeError, Message: "Failed to register vote."}
	case OpRemoveSong:
		return &Notice{Kind: NoticeError, Message: "Failed to remove song."}
	case OpPlayNext:
		return &Notice{Kind: NoticeError, Message: "Failed to advance queue."}
	case OpClearQueue:
		return &Notice{Kind: NoticeError, Message: "Failed to clear queue."}
	}
	return &Notice{Kind: NoticeError, Message: "Something went wrong."}
}
