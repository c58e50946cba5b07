package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"gosuda.org/portal/portal/core/cryptoops"
	"gosuda.org/portal/sdk"
)

// relayURLs flattens repeated and comma-separated relay flags, dropping blanks.
func relayURLs(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, p := range strings.Split(r, ",") {
			if u := strings.TrimSpace(p); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

// serveRelays publishes handler under name on every relay in urls. With no
// relays it does nothing. The returned func closes listeners and clients.
func serveRelays(ctx context.Context, urls []string, name, credKey string, handler http.Handler) (func(), error) {
	if len(urls) == 0 {
		return func() {}, nil
	}

	// Shared credential across all relay listeners
	cred := sdk.NewCredential()
	if credKey != "" {
		key, err := base64.StdEncoding.DecodeString(credKey)
		if err != nil {
			return nil, fmt.Errorf("decode cred key: %w", err)
		}
		cred2, err := cryptoops.NewCredentialFromPrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("new credential from private key: %w", err)
		}
		cred = cred2
	}

	var clients []*sdk.RDClient
	var listeners []net.Listener
	closeAll := func() {
		for _, ln := range listeners {
			_ = ln.Close()
		}
		for _, c := range clients {
			_ = c.Close()
		}
	}
	for _, u := range urls {
		client, err := sdk.NewClient(func(c *sdk.RDClientConfig) { c.BootstrapServers = []string{u} })
		if err != nil {
			log.Error().Err(err).Str("url", u).Msg("[relay] new client failed")
			continue
		}
		clients = append(clients, client)
		ln, err := client.Listen(cred, name, []string{"http/1.1"})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("listen (%s): %w", u, err)
		}
		listeners = append(listeners, ln)
	}
	if len(listeners) == 0 {
		closeAll()
		return nil, fmt.Errorf("no relay accepted the transcript listener")
	}

	for i, ln := range listeners {
		idx := i
		go func() {
			if err := http.Serve(ln, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
				log.Error().Err(err).Int("listener", idx).Msg("[relay] http error")
			}
		}()
	}
	log.Info().Str("name", name).Int("relays", len(listeners)).Msg("[relay] transcript published")
	return closeAll, nil
}
