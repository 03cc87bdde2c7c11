// Package translate holds the translation backends used by the work stage.
package translate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Translator turns one piece of source-language text into the target
// language.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text string) (string, error)
}

// Languages is the source/target pair a translator is bound to.
type Languages struct {
	Source language.Tag
	Target language.Tag
}

// ParseLanguages parses a BCP 47 source/target pair.
func ParseLanguages(source, target string) (Languages, error) {
	src, err := language.Parse(source)
	if err != nil {
		return Languages{}, fmt.Errorf("source language %q: %w", source, err)
	}
	dst, err := language.Parse(target)
	if err != nil {
		return Languages{}, fmt.Errorf("target language %q: %w", target, err)
	}
	return Languages{Source: src, Target: dst}, nil
}

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// roundTrip sends req and reads the body. Failing to get a complete response
// is a TransportError; the caller classifies whatever the provider answered.
func roundTrip(client *http.Client, backend string, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Backend: backend, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Backend: backend, Err: fmt.Errorf("read response: %w", err)}
	}
	return resp.StatusCode, body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
