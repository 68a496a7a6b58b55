package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/go-console-session/identity"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
)

type callbackResult struct {
	code  string
	state string
	err   error
}

// delegatedGrant runs the browser half of the authorization code flow on a loopback listener
func delegatedGrant(ctx context.Context, src *identity.DelegatedProviderSource, redirectURL string) (identity.AuthCodeGrant, error) {
	redirect, err := url.Parse(redirectURL)
	if err != nil {
		return identity.AuthCodeGrant{}, fmt.Errorf("invalid redirect URL: %w", err)
	}
	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return identity.AuthCodeGrant{}, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	results := make(chan callbackResult, 1)
	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != redirect.Path {
				http.NotFound(w, r)
				return
			}
			if errorParam := r.FormValue("error"); errorParam != "" {
				http.Error(w, "Authorization failed", http.StatusBadRequest)
				deliver(results, callbackResult{err: fmt.Errorf("authorization failed: %s - %s", errorParam, r.FormValue("error_description"))})
				return
			}
			fmt.Fprintln(w, "Login complete. You can close this window.")
			deliver(results, callbackResult{code: r.FormValue("code"), state: r.FormValue("state")})
		}),
	}
	go func() {
		if err := server.Serve(listener); err != nil && !apperrors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("Callback server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authReq := src.AuthorizationRequest()
	pterm.Info.Println("Open the following URL in your browser to sign in:")
	pterm.Println("  " + authReq.URL)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	select {
	case res := <-results:
		if res.err != nil {
			return identity.AuthCodeGrant{}, res.err
		}
		return identity.AuthCodeGrant{
			Code:          res.code,
			State:         res.state,
			ExpectedState: authReq.State,
			Verifier:      authReq.Verifier,
			Nonce:         authReq.Nonce,
		}, nil
	case <-waitCtx.Done():
		return identity.AuthCodeGrant{}, fmt.Errorf("timed out waiting for the browser login: %w", waitCtx.Err())
	}
}

// deliver keeps the first callback; reloads and repeated redirects are dropped
func deliver(results chan<- callbackResult, res callbackResult) {
	select {
	case results <- res:
	default:
	}
}
