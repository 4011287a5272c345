package oauth2

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// waitForCallback runs a one-shot HTTP server on the redirect address
// and returns the authorization code the provider sends back.
func waitForCallback(ctx context.Context, logger *slog.Logger) (string, error) {
	listener, err := net.Listen("tcp", "localhost:8085")
	if err != nil {
		return "", fmt.Errorf("failed to start callback server: %w", err)
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("callback received without authorization code")
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "Authentication successful. You can close this window.")
		codeChan <- code
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Debug("waiting for OAuth2 callback", "addr", listener.Addr().String())

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	select {
	case code := <-codeChan:
		return code, nil
	case err := <-errChan:
		return "", err
	case <-waitCtx.Done():
		return "", fmt.Errorf("timed out waiting for authorization")
	}
}
