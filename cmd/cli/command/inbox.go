package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cinelist/cmd/cli/command/client"
	"cinelist/internal/inbox"
	"cinelist/internal/metadata"
	"cinelist/internal/microservices/http-api/dto"
)

// inbox.go exposes the recommendation inbox: every subcommand drives an
// inbox.Store backed by the HTTP client.

// session bundles the store with the client it talks through.
type session struct {
	client *client.HTTPClient
	store  *inbox.Store
	close  func()
}

// openSession builds a signed-in store. Metadata enrichment is enabled
// when a TMDB key is configured, cached in redis when REDIS_URL is set
// and reachable.
func openSession(ctx context.Context) (*session, error) {
	httpClient, err := authenticatedClient()
	if err != nil {
		return nil, err
	}

	opts := []inbox.Option{inbox.WithLogger(logger)}
	closers := []func(){}

	if cfg.MetadataEnabled() {
		var cache metadata.Cache
		if cfg.RedisURL != "" {
			rc, err := metadata.NewRedisCache(ctx, cfg.RedisURL, cfg.TMDBLanguage)
			if err != nil {
				logger.Warn("metadata_cache_unavailable", "error", err)
			} else {
				cache = rc
				closers = append(closers, func() { _ = rc.Close() })
			}
		}
		fetcher := metadata.NewClient(cfg.TMDBAPIURL, cfg.TMDBAPIKey, cfg.TMDBLanguage, logger)
		opts = append(opts, inbox.WithEnricher(metadata.NewEnricher(fetcher, cache, cfg.CacheTTL, logger)))
	}

	feed, err := client.NewWSFeed(httpClient.BaseURL(), httpClient.AccessToken, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, inbox.WithFeed(feed))

	store := inbox.NewStore(httpClient, httpClient, opts...)
	feed.OnReconnect(func() { store.FetchRecommendations(context.Background(), true) })

	return &session{
		client: httpClient,
		store:  store,
		close: func() {
			for _, c := range closers {
				c()
			}
		},
	}, nil
}

// fetch loads both directions; store mutations work on loaded state.
func (s *session) fetch(ctx context.Context) error {
	if !s.store.FetchRecommendations(ctx, true) {
		return storeError(s.store, "fetch recommendations")
	}
	return nil
}

func storeError(store *inbox.Store, op string) error {
	if msg := store.Snapshot().Error; msg != "" {
		return fmt.Errorf("%s: %s", op, msg)
	}
	return fmt.Errorf("%s failed", op)
}

// withSession runs fn against a freshly fetched store.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.fetch(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}

var inboxCmd = &cobra.Command{
	Use:     "inbox",
	Aliases: []string{"rec"},
	Short:   "Recommendation inbox",
}

var inboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List received and sent recommendations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			printState(s.store.Snapshot(), s.client.CurrentUserID())
			return nil
		})
	},
}

var inboxSendCmd = &cobra.Command{
	Use:   "send <username> <movie|tv> <external-id>",
	Short: "Recommend a movie or show to another user",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		externalID, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil || externalID <= 0 {
			return fmt.Errorf("invalid external id %q", args[2])
		}
		kind := inbox.MediaKind(args[1])
		if !kind.Valid() {
			return fmt.Errorf("media kind must be movie or tv, got %q", args[1])
		}
		message, _ := cmd.Flags().GetString("message")

		httpClient, err := authenticatedClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		rec, err := httpClient.Recommend(ctx, dto.CreateRecommendationDTO{
			ReceiverUsername: args[0],
			ExternalID:       externalID,
			MediaKind:        string(kind),
			Message:          message,
		})
		if err != nil {
			return fmt.Errorf("send recommendation: %w", err)
		}
		color.Green("✓ Sent %s %d to %s (%s)", rec.MediaKind, rec.ExternalID, args[0], rec.ID)
		return nil
	},
}

var inboxCommentCmd = &cobra.Command{
	Use:   "comment <recommendation-id> <text...>",
	Short: "Comment on a recommendation",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if !s.store.AddComment(ctx, args[0], strings.Join(args[1:], " ")) {
				return storeError(s.store, "add comment")
			}
			color.Green("✓ Comment added")
			return nil
		})
	},
}

var inboxUncommentCmd = &cobra.Command{
	Use:   "uncomment <recommendation-id> <comment-id>",
	Short: "Delete a comment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if !s.store.DeleteComment(ctx, args[0], args[1]) {
				return storeError(s.store, "delete comment")
			}
			color.Green("✓ Comment deleted")
			return nil
		})
	},
}

var inboxRateCmd = &cobra.Command{
	Use:   "rate <recommendation-id> <0-10>",
	Short: "Rate a received recommendation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[1])
		if err != nil || score < inbox.MinScore || score > inbox.MaxScore {
			return fmt.Errorf("score must be between %d and %d", inbox.MinScore, inbox.MaxScore)
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if !s.store.AddRating(ctx, args[0], score) {
				return storeError(s.store, "rate")
			}
			color.Green("✓ Rated %d/10", score)
			return nil
		})
	},
}

var inboxDeleteCmd = &cobra.Command{
	Use:   "delete <recommendation-id>",
	Short: "Remove a recommendation from your inbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if !s.store.DeleteRecommendation(ctx, args[0]) {
				if msg := s.store.Snapshot().Error; msg != "" {
					return errors.New(msg)
				}
				return fmt.Errorf("recommendation %s not found", args[0])
			}
			color.Green("✓ Deleted")
			return nil
		})
	},
}

var inboxReadCmd = &cobra.Command{
	Use:   "read <recommendation-id>",
	Short: "Mark a received recommendation read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if !s.store.MarkAsRead(ctx, args[0]) {
				return storeError(s.store, "mark read")
			}
			fmt.Printf("Unread: %d\n", s.store.Snapshot().UnreadCount)
			return nil
		})
	},
}

var inboxReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every received recommendation read",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if !s.store.MarkAllAsRead(ctx) {
				return storeError(s.store, "mark all read")
			}
			fmt.Printf("Unread: %d\n", s.store.Snapshot().UnreadCount)
			return nil
		})
	},
}

var inboxReadCommentsCmd = &cobra.Command{
	Use:   "read-comments <recommendation-id>",
	Short: "Mark the other party's comments read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if !s.store.MarkCommentsAsRead(ctx, args[0]) {
				return storeError(s.store, "mark comments read")
			}
			fmt.Printf("Unread: %d\n", s.store.Snapshot().UnreadCount)
			return nil
		})
	},
}

var inboxWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the unread badge in realtime",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		if err := s.fetch(ctx); err != nil {
			return err
		}

		var mu sync.Mutex
		last := -1
		cancelWatch := s.store.Watch(func(st inbox.State) {
			mu.Lock()
			defer mu.Unlock()
			if st.UnreadCount == last {
				return
			}
			last = st.UnreadCount
			printBadge(st.UnreadCount)
		})
		defer cancelWatch()

		unsubscribe, err := s.store.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		defer unsubscribe()

		mu.Lock()
		if last == -1 {
			last = s.store.Snapshot().UnreadCount
			printBadge(last)
		}
		mu.Unlock()
		color.Cyan("Watching for changes, Ctrl+C to stop")
		<-ctx.Done()
		return nil
	},
}

func printBadge(n int) {
	if n == 0 {
		color.Green("[%s] inbox clear", time.Now().Format("15:04:05"))
		return
	}
	color.Yellow("🔔 [%s] %d unread", time.Now().Format("15:04:05"), n)
}

func printState(st inbox.State, viewerID string) {
	bold := color.New(color.Bold)
	unread := color.New(color.FgYellow)

	bold.Printf("Received (%d)\n", len(st.Received))
	for _, r := range st.Received {
		marker := " "
		if !r.IsRead {
			marker = unread.Sprint("●")
		}
		from := r.SenderID
		if r.Sender != nil {
			from = r.Sender.Username
		}
		fmt.Printf("%s %s  %-30s from %s%s\n", marker, r.ID, displayTitle(r), from, ratingSuffix(r))
		printThread(r, viewerID)
	}

	bold.Printf("\nSent (%d)\n", len(st.Sent))
	for _, r := range st.Sent {
		to := r.ReceiverID
		if r.Receiver != nil {
			to = r.Receiver.Username
		}
		fmt.Printf("  %s  %-30s to %s%s\n", r.ID, displayTitle(r), to, ratingSuffix(r))
		printThread(r, viewerID)
	}

	fmt.Println()
	if st.UnreadCount > 0 {
		unread.Printf("%d unread\n", st.UnreadCount)
	} else {
		fmt.Println("Nothing unread")
	}
}

func printThread(r inbox.Recommendation, viewerID string) {
	if r.Message != "" {
		fmt.Printf("      “%s”\n", r.Message)
	}
	for _, c := range r.Comments {
		marker := " "
		if !c.IsRead && c.UserID != viewerID {
			marker = color.YellowString("●")
		}
		who := "them"
		if c.UserID == viewerID {
			who = "you"
		}
		fmt.Printf("    %s %s [%s] %s\n", marker, c.ID, who, c.Content)
	}
}

func displayTitle(r inbox.Recommendation) string {
	if r.Title != "" {
		return r.Title
	}
	return fmt.Sprintf("%s #%d", r.MediaKind, r.ExternalID)
}

func ratingSuffix(r inbox.Recommendation) string {
	if r.Rating == nil {
		return ""
	}
	return fmt.Sprintf("  ★ %d/10", r.Rating.Score)
}

func init() {
	rootCmd.AddCommand(inboxCmd)
	inboxCmd.AddCommand(
		inboxListCmd,
		inboxSendCmd,
		inboxCommentCmd,
		inboxUncommentCmd,
		inboxRateCmd,
		inboxDeleteCmd,
		inboxReadCmd,
		inboxReadAllCmd,
		inboxReadCommentsCmd,
		inboxWatchCmd,
	)

	inboxSendCmd.Flags().StringP("message", "m", "", "optional note for the receiver")
}
