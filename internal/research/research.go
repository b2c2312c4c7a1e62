// Package research gathers source material for a topic from the web: it
// searches with Google Custom Search, fetches the top pages and joins their
// main text into one corpus.
package research

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jonathan/script-generator/internal/ingestion"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Defaults for Gather.
const (
	DefaultMaxPages    = 3
	DefaultMaxChars    = 60000
	DefaultConcurrency = 3
	maxSearchResults   = 10
)

// ErrNoSources is returned when no search result could be fetched.
var ErrNoSources = errors.New("no usable sources found")

// Result is one search hit.
type Result struct {
	Title   string
	Link    string
	Snippet string
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]Result, error)
}

// FetchFunc returns the main text of a page.
type FetchFunc func(ctx context.Context, url string) (string, error)

// GoogleSearcher searches with the Custom Search JSON API.
type GoogleSearcher struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleSearcher creates a searcher for the programmable search engine cx.
func NewGoogleSearcher(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleSearcher, error) {
	if cx == "" {
		return nil, fmt.Errorf("search engine id is required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{svc: svc, cx: cx}, nil
}

// Search returns up to n results for query.
func (g *GoogleSearcher) Search(ctx context.Context, query string, n int) ([]Result, error) {
	n = max(1, min(n, maxSearchResults))
	resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(int64(n)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}
	return results, nil
}

// Options controls Gather.
type Options struct {
	MaxPages    int
	MaxChars    int
	Concurrency int
	SkipDomains []string // defaults to DefaultSkipDomains
	UseBrowser  bool
	Verbose     bool
	Fetch       FetchFunc // defaults to ingestion.FromURL
}

// Source is a page that contributed to the corpus.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Chars int    `json:"chars"`
}

// Corpus is the gathered material for a topic.
type Corpus struct {
	Topic   string       `json:"topic"`
	Sources []Source     `json:"sources"`
	Skipped []SkippedURL `json:"skipped,omitempty"`
	Text    string       `json:"text"`
}

// Gather searches for topic and fetches the best results. Pages that fail to
// fetch are skipped; it fails only when none succeed.
func Gather(ctx context.Context, topic string, searcher Searcher, opts Options) (*Corpus, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SkipDomains == nil {
		opts.SkipDomains = DefaultSkipDomains
	}
	if opts.Fetch == nil {
		opts.Fetch = func(ctx context.Context, url string) (string, error) {
			return ingestion.FromURL(ctx, url, ingestion.URLOptions{UseBrowser: opts.UseBrowser, Verbose: opts.Verbose})
		}
	}

	// Ask for extra results so skipped and failing pages can be replaced.
	results, err := searcher.Search(ctx, topic, opts.MaxPages*2)
	if err != nil {
		return nil, err
	}
	kept, skipped := FilterResults(results, opts.SkipDomains)
	if opts.Verbose {
		log.Printf("[research] %q: %d results, %d kept", topic, len(results), len(kept))
	}

	texts := make([]string, len(kept))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, r := range kept {
		g.Go(func() error {
			text, err := opts.Fetch(gctx, r.Link)
			if err != nil {
				if opts.Verbose {
					log.Printf("[research] skipping %s: %v", r.Link, err)
				}
				mu.Lock()
				skipped = append(skipped, SkippedURL{URL: r.Link, Reason: "fetch failed"})
				mu.Unlock()
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	g.Wait() //nolint:errcheck // fetch errors are recorded as skipped
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	corpus := &Corpus{Topic: topic, Skipped: skipped}
	var sb strings.Builder
	for i, r := range kept {
		if len(corpus.Sources) == opts.MaxPages {
			break
		}
		if texts[i] == "" {
			continue
		}
		sep := ""
		if sb.Len() > 0 {
			sep = "\n\n"
		}
		remaining := opts.MaxChars - sb.Len() - len(sep)
		if remaining <= 0 {
			break
		}
		text := texts[i]
		if len(text) > remaining {
			text = truncateUTF8(text, remaining)
		}
		if text == "" {
			break
		}
		sb.WriteString(sep)
		sb.WriteString(text)
		corpus.Sources = append(corpus.Sources, Source{Title: r.Title, URL: r.Link, Chars: len(text)})
	}
	if len(corpus.Sources) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoSources, topic)
	}
	corpus.Text = sb.String()
	return corpus, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	for n > 0 && n < len(s) && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
