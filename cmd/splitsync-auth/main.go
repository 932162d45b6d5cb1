// splitsync-auth runs the one-shot OAuth2 authorization flow and prints the
// access token to save under [splitwise] in the config file.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/acanadell/splitsync/internal/config"
	"github.com/acanadell/splitsync/internal/splitwise"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default $SPLITSYNC_CONFIG, then ~/.config/splitsync)")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Splitwise.ConsumerKey == "" || cfg.Splitwise.ConsumerSecret == "" {
		log.Fatal().Msg("splitwise.consumer_key and splitwise.consumer_secret must be configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	oc := splitwise.OAuthConfig(cfg.Splitwise.ConsumerKey, cfg.Splitwise.ConsumerSecret, cfg.Splitwise.CallbackAddr)
	tok, err := splitwise.Authorize(ctx, oc, cfg.Splitwise.CallbackAddr, log)
	if err != nil {
		log.Fatal().Err(err).Msg("authorization failed")
	}

	log.Info().Msg("authorization finished, save these under [splitwise] in the config file:")
	log.Info().Str("access_token", tok.AccessToken).Str("token_type", tok.TokenType).Msg("token")
}
