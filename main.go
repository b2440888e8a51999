package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Woondzer/ChatIt/api"
	"github.com/Woondzer/ChatIt/auth"
	"github.com/Woondzer/ChatIt/chat"
	"github.com/Woondzer/ChatIt/store"
)

var rootCmd = &cobra.Command{
	Use:   "chatit",
	Short: "ChatIt terminal chat client",
	RunE:  runClient,
}

var (
	flagBaseURL    string
	flagDataPath   string
	flagReplyDelay time.Duration
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagBaseURL, "base-url", envOr("CHATIT_API", "http://localhost:3000"), "ChatIt API base URL (env CHATIT_API)")
	flags.StringVar(&flagDataPath, "data-path", "chatit-data", "directory for the local session db (empty to run in memory)")
	flags.DurationVar(&flagReplyDelay, "reply-delay", 1500*time.Millisecond, "delay before the demo companion answers")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute chatit command")
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store = store.NewMemory()
	if flagDataPath != "" {
		if s, err := store.OpenPebble(flagDataPath); err != nil {
			log.Warn().Err(err).Msg("[chatit] open store failed; running in memory only")
		} else {
			st = s
		}
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("[chatit] store close error")
		}
	}()

	client := api.New(flagBaseURL)
	session := auth.NewSession(client, st)
	// One CSRF fetch per run, like the web client does on mount; failures
	// are retried lazily before the next state-changing call.
	session.FetchCSRF(ctx)

	sync := chat.NewSynchronizer(client, session, st)
	sync.ReplyDelay = flagReplyDelay

	if session.LoggedIn() {
		log.Info().Str("user", session.Subject()).Msg("[chatit] session restored")
		openConversation(ctx, session, sync)
	}

	runPrompt(ctx, session, sync)
	log.Info().Msg("[chatit] shutdown complete")
	return nil
}

// openConversation resumes the caller's own conversation: same subject,
// same id, every run.
func openConversation(ctx context.Context, session *auth.Session, sync *chat.Synchronizer) {
	sync.SetConversation(sync.ResolveConversationID(session.Subject()))
	sync.LoadOrSeedLocal()
	sync.LoadRemote(ctx)
}
