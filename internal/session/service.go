package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/party-queue-system/internal/queue"
	"github.com/party-queue-system/internal/vote"
	"github.com/party-queue-system/pkg/events"
	"github.com/party-queue-system/pkg/logger"
	"github.com/party-queue-system/pkg/models"
	"github.com/party-queue-system/pkg/store"
)

const maxCodeAttempts = 8

type Op string

const (
	OpCreateSession Op = "create-session"
	OpJoinSession   Op = "join-session"
	OpAddSong       Op = "add-song"
	OpVote          Op = "vote"
	OpRemoveSong    Op = "remove-song"
	OpPlayNext      Op = "play-next"
	OpClearQueue    Op = "clear-queue"
)

type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeRejectedDuplicate Outcome = "rejected-duplicate"
	// OutcomeNoop: the target song was gone or the queue was empty.
	OutcomeNoop Outcome = "noop"
)

// Result is what every mutating operation hands back to the presentation layer.
type Result struct {
	Op      Op                  `json:"op"`
	Outcome Outcome             `json:"outcome"`
	Session *models.Session     `json:"session"`
	User    *models.CurrentUser `json:"user,omitempty"`
	Song    *models.Song        `json:"song,omitempty"`
}

// Identity stores the CurrentUser record of one browser or local client.
type Identity interface {
	SaveUser(ctx context.Context, user models.CurrentUser) error
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCodeGenerator(gen func() string) Option {
	return func(s *Service) { s.newCode = gen }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func WithEvents(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

type Service struct {
	repo    *Repository
	events  events.Publisher
	now     func() time.Time
	newCode func() string
	newID   func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		repo:    NewRepository(st),
		events:  events.Nop{},
		now:     time.Now,
		newCode: generateSessionCode,
		newID:   uuid.NewString,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp drops the monotonic reading so values compare equal after a
// round trip through the store.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Round(0)
}

func (s *Service) Repository() *Repository {
	return s.repo
}

// lock serializes read-modify-write cycles on one session inside this
// process. Writers in other processes are not coordinated: last write wins.
func (s *Service) lock(code string) func() {
	s.mu.Lock()
	m, ok := s.locks[code]
	if !ok {
		m = &sync.Mutex{}
		s.locks[code] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *Service) CreateSession(ctx context.Context, identity Identity, sessionName, hostName string) (*Result, error) {
	sessionName = strings.TrimSpace(sessionName)
	hostName = strings.TrimSpace(hostName)
	if sessionName == "" {
		return nil, invalid("sessionName", "Please enter a session name.")
	}
	if hostName == "" {
		return nil, invalid("hostName", "Please enter your display name.")
	}

	code, err := s.allocateCode(ctx)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        code,
		Name:      sessionName,
		HostName:  hostName,
		CreatedAt: s.timestamp(),
		Queue:     []models.Song{},
		History:   []models.Song{},
	}
	user := models.CurrentUser{Name: hostName, SessionCode: code, IsHost: true}
	res := &Result{Op: OpCreateSession, Outcome: OutcomeApplied, Session: session, User: &user}

	unlock := s.lock(code)
	persistErr := s.repo.SaveSession(ctx, session)
	unlock()
	if err := saveIdentity(ctx, identity, user); err != nil && persistErr == nil {
		persistErr = err
	}
	if persistErr != nil {
		logger.Warn("session created but not persisted", logger.String("code", code), logger.Err(persistErr))
		return res, persistErr
	}

	logger.Info("session created", logger.String("code", code), logger.String("host", hostName))
	s.publish(ctx, events.EventTypeSessionCreated, code, hostName, events.SessionCreatedPayload{
		Name:     sessionName,
		HostName: hostName,
	})
	return res, nil
}

func (s *Service) allocateCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := s.newCode()
		_, err := s.repo.LoadSession(ctx, code)
		switch {
		case errors.Is(err, ErrSessionNotFound):
			return code, nil
		case err != nil && !errors.Is(err, ErrPersistenceFailed):
			return "", err
		case err != nil:
			// An unreadable record still occupies the key.
			logger.Warn("session code lookup failed", logger.String("code", code), logger.Err(err))
		}
	}
	return "", fmt.Errorf("%w: no free session code after %d attempts", ErrPersistenceFailed, maxCodeAttempts)
}

func saveIdentity(ctx context.Context, identity Identity, user models.CurrentUser) error {
	if identity == nil {
		return nil
	}
	if err := identity.SaveUser(ctx, user); err != nil {
		if errors.Is(err, ErrPersistenceFailed) {
			return err
		}
		return fmt.Errorf("%w: failed to save user: %w", ErrPersistenceFailed, err)
	}
	return nil
}

// JoinSession records a participant identity for an existing session. The
// session itself is not modified: the host never learns who joined.
func (s *Service) JoinSession(ctx context.Context, identity Identity, code, participantName string) (*Result, error) {
	code = NormalizeCode(code)
	participantName = strings.TrimSpace(participantName)
	if code == "" {
		return nil, invalid("code", "Please enter a session code.")
	}
	if participantName == "" {
		return nil, invalid("name", "Please enter your display name.")
	}

	session, err := s.repo.LoadSession(ctx, code)
	if err != nil {
		return nil, err
	}

	user := models.CurrentUser{Name: participantName, SessionCode: code, IsHost: false}
	res := &Result{Op: OpJoinSession, Outcome: OutcomeApplied, Session: session, User: &user}
	if err := saveIdentity(ctx, identity, user); err != nil {
		logger.Warn("joined session but identity not persisted", logger.String("code", code), logger.Err(err))
		return res, err
	}

	s.publish(ctx, events.EventTypeUserJoined, code, participantName, nil)
	return res, nil
}

func (s *Service) GetSession(ctx context.Context, code string) (*models.Session, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrSessionNotFound
	}
	return s.repo.LoadSession(ctx, code)
}

func (s *Service) AddSong(ctx context.Context, user models.CurrentUser, title, artist string) (*Result, error) {
	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)
	if title == "" {
		return nil, invalid("title", "Please enter a song title.")
	}
	if artist == "" {
		return nil, invalid("artist", "Please enter an artist name.")
	}

	song := models.Song{
		ID:          s.newID(),
		Title:       title,
		Artist:      artist,
		SubmittedBy: user.Name,
		SubmittedAt: s.timestamp(),
		Voters:      map[string]models.VoteType{},
	}

	res, err := s.mutate(ctx, OpAddSong, user, func(session *models.Session) (Outcome, *models.Song) {
		session.Queue = append(session.Queue, song)
		return OutcomeApplied, &song
	})
	if res != nil && res.Outcome == OutcomeApplied && err == nil {
		s.publish(ctx, events.EventTypeSongAdded, user.SessionCode, user.Name, events.SongPayload{
			SongID: song.ID,
			Title:  song.Title,
			Artist: song.Artist,
		})
	}
	return res, err
}

func (s *Service) Vote(ctx context.Context, user models.CurrentUser, songID string, direction models.VoteType) (*Result, error) {
	if !direction.Valid() {
		return nil, invalid("direction", "Vote must be up or down.")
	}
	if strings.TrimSpace(user.Name) == "" {
		return nil, invalid("name", "Please enter your display name.")
	}

	res, err := s.mutate(ctx, OpVote, user, func(session *models.Session) (Outcome, *models.Song) {
		i := queue.IndexOf(session.Queue, songID)
		if i < 0 {
			return OutcomeNoop, nil
		}
		updated, outcome := vote.Apply(session.Queue[i], user.Name, direction)
		if outcome == vote.RejectedDuplicate {
			return OutcomeRejectedDuplicate, &updated
		}
		session.Queue[i] = updated
		return OutcomeApplied, &updated
	})
	if res != nil && res.Outcome == OutcomeApplied && err == nil {
		s.publish(ctx, events.EventTypeSongVoted, user.SessionCode, user.Name, events.SongVotedPayload{
			SongID:    songID,
			Direction: string(direction),
			NetScore:  res.Song.NetScore,
		})
	}
	return res, err
}

// RemoveSong discards a queued song. Host only.
func (s *Service) RemoveSong(ctx context.Context, user models.CurrentUser, songID string) (*Result, error) {
	if !user.IsHost {
		return nil, ErrUnauthorized
	}

	res, err := s.mutate(ctx, OpRemoveSong, user, func(session *models.Session) (Outcome, *models.Song) {
		i := queue.IndexOf(session.Queue, songID)
		if i < 0 {
			return OutcomeNoop, nil
		}
		removed := session.Queue[i]
		session.Queue = append(session.Queue[:i:i], session.Queue[i+1:]...)
		return OutcomeApplied, &removed
	})
	if res != nil && res.Outcome == OutcomeApplied && err == nil {
		s.publish(ctx, events.EventTypeSongRemoved, user.SessionCode, user.Name, events.SongPayload{
			SongID: res.Song.ID,
			Title:  res.Song.Title,
			Artist: res.Song.Artist,
		})
	}
	return res, err
}

// PlayNext moves the top-ranked song into now playing and pushes the song it
// replaces onto the front of the history.
func (s *Service) PlayNext(ctx context.Context, user models.CurrentUser) (*Result, error) {
	var previous string
	res, err := s.mutate(ctx, OpPlayNext, user, func(session *models.Session) (Outcome, *models.Song) {
		if len(session.Queue) == 0 {
			return OutcomeNoop, nil
		}
		ranked := queue.Sort(session.Queue)
		next := ranked[0]

		if session.NowPlaying != nil {
			previous = session.NowPlaying.ID
			history := make([]models.Song, 0, len(session.History)+1)
			history = append(history, *session.NowPlaying)
			session.History = append(history, session.History...)
		}
		session.NowPlaying = &next
		session.Queue = ranked[1:]
		return OutcomeApplied, &next
	})
	if res != nil && res.Outcome == OutcomeApplied && err == nil {
		s.publish(ctx, events.EventTypeNowPlayingChanged, user.SessionCode, user.Name, events.NowPlayingPayload{
			SongID:         res.Song.ID,
			Title:          res.Song.Title,
			Artist:         res.Song.Artist,
			PreviousSongID: previous,
		})
	}
	return res, err
}

// ClearQueue empties the queue, leaving now playing and history alone. Host
// only. Callers are expected to have confirmed the action with the user.
func (s *Service) ClearQueue(ctx context.Context, user models.CurrentUser) (*Result, error) {
	if !user.IsHost {
		return nil, ErrUnauthorized
	}

	removed := 0
	res, err := s.mutate(ctx, OpClearQueue, user, func(session *models.Session) (Outcome, *models.Song) {
		removed = len(session.Queue)
		session.Queue = []models.Song{}
		return OutcomeApplied, nil
	})
	if res != nil && res.Outcome == OutcomeApplied && err == nil {
		s.publish(ctx, events.EventTypeQueueCleared, user.SessionCode, user.Name, events.QueueClearedPayload{
			Removed: removed,
		})
	}
	return res, err
}

// mutate runs one read-modify-write cycle against the user's session. The
// store is only written when apply reports OutcomeApplied; the queue is
// re-sorted before every write. On a failed write the Result is returned
// alongside ErrPersistenceFailed.
func (s *Service) mutate(ctx context.Context, op Op, user models.CurrentUser, apply func(*models.Session) (Outcome, *models.Song)) (*Result, error) {
	code := NormalizeCode(user.SessionCode)
	if code == "" {
		return nil, ErrSessionNotFound
	}

	unlock := s.lock(code)
	defer unlock()

	current, err := s.repo.LoadSession(ctx, code)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	outcome, song := apply(next)
	if outcome != OutcomeApplied {
		return &Result{Op: op, Outcome: outcome, Session: current, Song: song}, nil
	}

	next.Queue = queue.Sort(next.Queue)
	res := &Result{Op: op, Outcome: outcome, Session: next, Song: song}
	if err := s.repo.SaveSession(ctx, next); err != nil {
		logger.Warn("session change not persisted",
			logger.String("code", code), logger.String("op", string(op)), logger.Err(err))
		return res, err
	}
	return res, nil
}

func (s *Service) publish(ctx context.Context, eventType events.EventType, code, userName string, payload interface{}) {
	ev, err := events.NewEvent(eventType, code, userName, payload)
	if err != nil {
		logger.Warn("failed to build event", logger.String("type", string(eventType)), logger.Err(err))
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish event",
			logger.String("type", string(eventType)), logger.String("code", code), logger.Err(err))
	}
}
