package cli

import (
	"fmt"
	"time"

	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const devSecret = "dev-secret-change-me"

// NewTokenCmd mints a tutor bearer token for development and scripting.
func NewTokenCmd(configPath *string) *cobra.Command {
	var tutorID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a tutor bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			token, err := newTokens(cfg, newLogger(cfg)).IssueTutor(tutorID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&tutorID, "tutor", "", "tutor id to embed in the token")
	_ = cmd.MarkFlagRequired("tutor")
	return cmd
}

func newTokens(cfg config.Config, log zerolog.Logger) *auth.Tokens {
	secret := cfg.Auth.Secret
	if secret == "" {
		log.Warn().Msg("auth.secret not set, using development secret")
		secret = devSecret
	}
	return auth.NewTokens(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
}
