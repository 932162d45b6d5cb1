package splitwise

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

var oauthEndpoint = oauth2.Endpoint{
	AuthURL:  "https://secure.splitwise.com/oauth/authorize",
	TokenURL: "https://secure.splitwise.com/oauth/token",
}

// OAuthConfig builds the authorization-code flow config from the consumer
// credentials.
func OAuthConfig(consumerKey, consumerSecret, callbackAddr string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     consumerKey,
		ClientSecret: consumerSecret,
		Endpoint:     oauthEndpoint,
		RedirectURL:  fmt.Sprintf("http://%s/generate_token/", callbackAddr),
	}
}

// Authorize runs the one-shot authorization-code flow: prints the authorize
// URL for the user to open, serves the callback on callbackAddr, exchanges
// the code and returns the token. The server lives only until the exchange
// finishes or ctx is done.
func Authorize(ctx context.Context, oc *oauth2.Config, callbackAddr string, log zerolog.Logger) (*oauth2.Token, error) {
	state := uuid.NewString()

	type result struct {
		tok *oauth2.Token
		err error
	}
	done := make(chan result, 1)

	router := chi.NewRouter()
	router.Get("/generate_token/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			done <- result{err: errors.New("oauth state mismatch")}
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "'code' not found in query params", http.StatusBadRequest)
			done <- result{err: errors.New("callback carried no code")}
			return
		}
		tok, err := oc.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, "token exchange failed", http.StatusBadGateway)
			done <- result{err: fmt.Errorf("exchange code: %w", err)}
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "Token generated, you can close this tab and go back to the terminal.")
		done <- result{tok: tok}
	})

	srv := &http.Server{Addr: callbackAddr, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			done <- result{err: fmt.Errorf("callback server: %w", err)}
		}
	}()

	log.Info().Str("url", oc.AuthCodeURL(state)).Msg("open this URL in a browser to authorize")

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return res.tok, res.err
}
