// Package home loads the data shown on the home page. The recent posts and
// the site statistics are fetched concurrently and each settles on its own.
package home

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/f1blog/internal/domain"
)

// DefaultPreviewLimit is how many recent posts the home page shows
const DefaultPreviewLimit = 3

// UnavailableMessage is the only failure text shown to visitors
const UnavailableMessage = "Data unavailable"

// EmptyPostsMessage is shown when the post list is empty
const EmptyPostsMessage = "No highlights at the moment."

// RegionState is the lifecycle of one independently loading region
type RegionState int

const (
	Loading RegionState = iota
	Ready
	Empty
	Unavailable
)

// String returns the string value of the state
func (s RegionState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Empty:
		return "empty"
	case Unavailable:
		return "unavailable"
	default:
		return "loading"
	}
}

// Settled reports whether the region left the loading state
func (s RegionState) Settled() bool {
	return s != Loading
}

// Region is a snapshot of a region
type Region[T any] struct {
	State   RegionState
	Data    T
	Message string
}

// region settles exactly once
type region[T any] struct {
	mu      sync.Mutex
	once    sync.Once
	value   Region[T]
	settled chan struct{}
}

func newRegion[T any]() *region[T] {
	return &region[T]{settled: make(chan struct{})}
}

func (r *region[T]) settle(v Region[T]) bool {
	applied := false
	r.once.Do(func() {
		r.mu.Lock()
		r.value = v
		r.mu.Unlock()
		close(r.settled)
		applied = true
	})
	return applied
}

func (r *region[T]) snapshot() Region[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Loader fetches the home page regions
type Loader struct {
	Posts        func(ctx context.Context) ([]domain.Post, error)
	Stats        func(ctx context.Context) (domain.SiteStats, error)
	PreviewLimit int
	Timeout      time.Duration // Per fetch; zero means no extra bound
	Logger       *slog.Logger
}

// Source is anything that can list posts and report site statistics
type Source interface {
	ListPosts(ctx context.Context) ([]domain.Post, error)
	GetSiteStats(ctx context.Context) (domain.SiteStats, error)
}

// NewLoader creates a Loader over src
func NewLoader(src Source, timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		Posts:        src.ListPosts,
		Stats:        src.GetSiteStats,
		PreviewLimit: DefaultPreviewLimit,
		Timeout:      timeout,
		Logger:       logger,
	}
}

// State is one load of the home page regions
type State struct {
	posts *region[[]domain.Post]
	stats *region[domain.SiteStats]
}

// Posts returns the current posts region
func (s *State) Posts() Region[[]domain.Post] {
	return s.posts.snapshot()
}

// Stats returns the current stats region
func (s *State) Stats() Region[domain.SiteStats] {
	return s.stats.snapshot()
}

// Wait blocks until both regions settle or ctx ends
func (s *State) Wait(ctx context.Context) error {
	for _, ch := range []chan struct{}{s.posts.settled, s.stats.settled} {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Start launches both fetches and returns immediately with both regions loading
func (l *Loader) Start(ctx context.Context) *State {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := l.PreviewLimit
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}

	st := &State{
		posts: newRegion[[]domain.Post](),
		stats: newRegion[domain.SiteStats](),
	}

	go func() {
		posts, err := fetch(ctx, l.Timeout, l.Posts)
		if err != nil {
			logger.WarnContext(ctx, "failed to load recent posts", "error", err)
			st.posts.settle(Region[[]domain.Post]{State: Unavailable, Message: UnavailableMessage})
			return
		}
		if len(posts) == 0 {
			st.posts.settle(Region[[]domain.Post]{State: Empty, Data: []domain.Post{}, Message: EmptyPostsMessage})
			return
		}
		if len(posts) > limit {
			posts = posts[:limit]
		}
		st.posts.settle(Region[[]domain.Post]{State: Ready, Data: posts})
	}()

	go func() {
		stats, err := fetch(ctx, l.Timeout, l.Stats)
		if err != nil {
			logger.WarnContext(ctx, "failed to load site stats", "error", err)
			st.stats.settle(Region[domain.SiteStats]{State: Unavailable, Message: UnavailableMessage})
			return
		}
		st.stats.settle(Region[domain.SiteStats]{State: Ready, Data: stats})
	}()

	return st
}

// Load starts the fetches and waits for both to settle
func (l *Loader) Load(ctx context.Context) *State {
	st := l.Start(ctx)
	// Both regions settle once ctx ends or Timeout passes
	_ = st.Wait(context.Background())
	return st
}

var errNoFetcher = errors.New("no fetcher configured")

// fetch runs fn bounded by timeout. A fetcher that ignores its context is
// abandoned when the deadline passes.
func fetch[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, errNoFetcher
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case res := <-done:
		return res.v, res.err
	case <-ctx.Done():
		return zero, domain.WrapDataUnavailable("fetch", ctx.Err())
	}
}
