package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/party-queue-system/internal/config"
	"github.com/party-queue-system/internal/session"
	"github.com/party-queue-system/pkg/database"
	"github.com/party-queue-system/pkg/logger"
	"github.com/party-queue-system/pkg/models"
	"github.com/party-queue-system/pkg/store"
)

var errNoCurrentUser = errors.New("no current session: run \"partyqueue create\" or \"partyqueue join\" first")

// localApp wires the service for one CLI invocation. Sessions live in the
// configured store; the CurrentUser record always lives in the local state file.
type localApp struct {
	svc      *session.Service
	identity *session.Repository
	closers  []func() error
}

func openLocal(ctx context.Context, cfg *config.Config) (*localApp, error) {
	app := &localApp{}

	local, err := database.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}
	app.closers = append(app.closers, local.Close)
	app.identity = session.NewRepository(local)

	var sessions store.Store = local
	if cfg.StoreDriver != config.DriverSQLite || !samePath(cfg.SQLitePath, local.Path()) {
		st, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, closeStore)
		sessions = st
	}

	publisher, kafkaClient := newPublisher(cfg, "")
	if kafkaClient != nil {
		app.closers = append(app.closers, kafkaClient.Close)
	}
	app.svc = session.NewService(sessions, session.WithEvents(publisher))
	return app, nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func (a *localApp) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func (a *localApp) currentUser(ctx context.Context) (models.CurrentUser, error) {
	user, err := a.identity.LoadUser(ctx)
	if err != nil {
		return models.CurrentUser{}, err
	}
	if user == nil {
		return models.CurrentUser{}, errNoCurrentUser
	}
	return *user, nil
}

// resolveSong accepts a full song id or a unique prefix of one from the queue.
func resolveSong(s *models.Session, ref string) (string, error) {
	var matches []string
	for _, song := range s.Queue {
		if song.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(song.ID, ref) {
			matches = append(matches, song.ID)
		}
	}
	switch len(matches) {
	case 0:
		// Unknown ids go through so the service reports a no-op.
		return ref, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("song id %q is ambiguous", ref)
	}
}

func withLocal(run func(ctx context.Context, app *localApp, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openLocal(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()
		return run(ctx, app, cmd, args)
	}
}

// report prints the notice for an operation. Errors come back as their
// user-facing message; the underlying cause is logged.
func report(w io.Writer, op session.Op, res *session.Result, err error) error {
	if err != nil {
		logger.Debug("operation failed", logger.String("op", string(op)), logger.Err(err))
		notice := session.ErrorNotice(op, err)
		if res != nil {
			return fmt.Errorf("%s (the change was not saved)", notice.Message)
		}
		return errors.New(notice.Message)
	}
	if notice := res.Notice(); notice != nil {
		fmt.Fprintln(w, notice.Message)
	}
	if res.Outcome == session.OutcomeNoop {
		fmt.Fprintln(w, "Nothing to do.")
	}
	return nil
}

var (
	hostName  string
	guestName string
	confirmed bool
)

var createCmd = &cobra.Command{
	Use:   "create SESSION-NAME",
	Short: "Create a session and become its host",
	Args:  cobra.ExactArgs(1),
	RunE: withLocal(func(ctx context.Context, app *localApp, cmd *cobra.Command, args []string) error {
		res, err := app.svc.CreateSession(ctx, app.identity, args[0], hostName)
		if err != nil {
			return report(cmd.OutOrStdout(), session.OpCreateSession, res, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %q created. Share the code %s with your guests.\n", res.Session.Name, res.Session.ID)
		return nil
	}),
}

var joinCmd = &cobra.Command{
	Use:   "join CODE",
	Short: "Join an existing session",
	Args:  cobra.ExactArgs(1),
	RunE: withLocal(func(ctx context.Context, app *localApp, cmd *cobra.Command, args []string) error {
		res, err := app.svc.JoinSession(ctx, app.identity, args[0], guestName)
		if err != nil {
			return report(cmd.OutOrStdout(), session.OpJoinSession, res, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Joined %q hosted by %s.\n", res.Session.Name, res.Session.HostName)
		return nil
	}),
}

var addCmd = &cobra.Command{
	Use:   "add TITLE ARTIST",
	Short: "Add a song to the queue",
	Args:  cobra.ExactArgs(2),
	RunE: withLocal(func(ctx context.Context, app *localApp, cmd *cobra.Command, args []string) error {
		user, err := app.currentUser(ctx)
		if err != nil {
			return err
		}
		res, err := app.svc.AddSong(ctx, user, args[0], args[1])
		return report(cmd.OutOrStdout(), session.OpAddSong, res, err)
	}),
}

var voteCmd = &cobra.Command{
	Use:   "vote SONG-ID up|down",
	Short: "Vote a queued song up or down",
	Args:  cobra.ExactArgs(2),
	RunE: withLocal(func(ctx context.Context, app *localApp, cmd *cobra.Command, args []string) error {
		user, err := app.currentUser(ctx)
		if err != nil {
			return err
		}
		s, err := app.svc.GetSession(ctx, user.SessionCode)
		if err != nil {
			return report(cmd.OutOrStdout(), session.OpVote, nil, err)
		}
		songID, err := resolveSong(s, args[0])
		if err != nil {
			return err
		}
		res, err := app.svc.Vote(ctx, user, songID, models.VoteType(strings.ToLower(args[1])))
		if err == nil && res.Outcome == session.OutcomeApplied {
			fmt.Fprintf(cmd.OutOrStdout(), "Voted %s on %q (score %+d).\n", strings.ToLower(args[1]), res.Song.Title, res.Song.NetScore)
		}
		return report(cmd.OutOrStdout(), session.OpVote, res, err)
	}),
}

var removeCmd = &cobra.Command{
	Use:   "remove SONG-ID",
	Short: "Remove a song from the queue (host only)",
	Args:  cobra.ExactArgs(1),
	RunE: withLocal(func(ctx context.Context, app *localApp, cmd *cobra.Command, args []string) error {
		user, err := app.currentUser(ctx)
		if err != nil {
			return err
		}
		s, err := app.svc.GetSession(ctx, user.SessionCode)
		if err != nil {
			return report(cmd.OutOrStdout(), session.OpRemoveSong, nil, err)
		}
		songID, err := resolveSong(s, args[0])
		if err != nil {
			return err
		}
		res, err := app.svc.RemoveSong(ctx, user, songID)
		return report(cmd.OutOrStdout(), session.OpRemoveSong, res, err)
	}),
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Play the top-ranked song",
	Args:  cobra.NoArgs,
	RunE: withLocal(func(ctx context.Context, app *localApp, cmd *cobra.Command, args []string) error {
		user, err := app.currentUser(ctx)
		if err != nil {
			return err
		}
		res, err := app.svc.PlayNext(ctx, user)
		return report(cmd.OutOrStdout(), session.OpPlayNext, res, err)
	}),
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every song from the queue (host only)",
	Args:  cobra.NoArgs,
	RunE: withLocal(func(ctx context.Context, app *localApp, cmd *cobra.Command, args []string) error {
		if !confirmed {
			return errors.New("clearing the queue cannot be undone: pass --yes to confirm")
		}
		user, err := app.currentUser(ctx)
		if err != nil {
			return err
		}
		res, err := app.svc.ClearQueue(ctx, user)
		return report(cmd.OutOrStdout(), session.OpClearQueue, res, err)
	}),
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show now playing, the queue and recent history",
	Args:  cobra.NoArgs,
	RunE: withLocal(func(ctx context.Context, app *localApp, cmd *cobra.Command, args []string) error {
		user, err := app.currentUser(ctx)
		if err != nil {
			return err
		}
		s, err := app.svc.GetSession(ctx, user.SessionCode)
		if err != nil {
			return report(cmd.OutOrStdout(), "", nil, err)
		}
		printSession(cmd.OutOrStdout(), s, user)
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the current identity",
	Args:  cobra.NoArgs,
	RunE: withLocal(func(ctx context.Context, app *localApp, cmd *cobra.Command, args []string) error {
		user, err := app.currentUser(ctx)
		if err != nil {
			return err
		}
		role := "guest"
		if user.IsHost {
			role = "host"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) in session %s\n", user.Name, role, user.SessionCode)
		return nil
	}),
}

const historyLimit = 10

func printSession(w io.Writer, s *models.Session, user models.CurrentUser) {
	fmt.Fprintf(w, "%s  [%s]  hosted by %s, started %s\n", s.Name, s.ID, s.HostName, humanize.Time(s.CreatedAt))
	if user.IsHost {
		fmt.Fprintln(w, "You are the host.")
	}

	fmt.Fprintln(w)
	if s.NowPlaying != nil {
		fmt.Fprintf(w, "Now playing: %s - %s\n", s.NowPlaying.Title, s.NowPlaying.Artist)
	} else {
		fmt.Fprintln(w, "Nothing playing yet.")
	}

	fmt.Fprintln(w)
	if len(s.Queue) == 0 {
		fmt.Fprintln(w, "The queue is empty. Add a song!")
	} else {
		fmt.Fprintf(w, "Up next (%d):\n", len(s.Queue))
		for i, song := range s.Queue {
			mark := ""
			switch song.Voters[user.Name] {
			case models.VoteUp:
				mark = " (you: up)"
			case models.VoteDown:
				mark = " (you: down)"
			}
			fmt.Fprintf(w, "%3d. %+4d  %s - %s  [%s] added by %s %s%s\n",
				i+1, song.NetScore, song.Title, song.Artist, shortID(song.ID),
				song.SubmittedBy, humanize.Time(song.SubmittedAt), mark)
		}
	}

	if len(s.History) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Recently played (%s):\n", humanize.Comma(int64(len(s.History))))
		for i, song := range s.History {
			if i == historyLimit {
				fmt.Fprintf(w, "     ...and %d more\n", len(s.History)-historyLimit)
				break
			}
			fmt.Fprintf(w, "     %s - %s\n", song.Title, song.Artist)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	createCmd.Flags().StringVar(&hostName, "name", "", "your display name")
	joinCmd.Flags().StringVar(&guestName, "name", "", "your display name")
	clearCmd.Flags().BoolVar(&confirmed, "yes", false, "confirm clearing the queue")

	rootCmd.AddCommand(createCmd, joinCmd, addCmd, voteCmd, removeCmd, nextCmd, clearCmd, showCmd, whoamiCmd)
}
