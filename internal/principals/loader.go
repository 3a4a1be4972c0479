package principals

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
)

// loadTimeout bounds a shared lookup once no single caller owns it.
const loadTimeout = 10 * time.Second

// Loader resolves principals for authenticated sessions. Concurrent loads of the
// same id share one lookup.
type Loader struct {
	finder Finder
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewLoader constructs a Loader. cache and logger may be nil.
func NewLoader(finder Finder, cache *Cache, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{finder: finder, cache: cache, logger: logger}
}

// Load returns the principal for id, or ErrNotFound.
func (l *Loader) Load(ctx context.Context, id int64) (*access.Principal, error) {
	resultChan := l.group.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		// The lookup is shared by every waiter, so it must outlive the caller that
		// started it.
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return l.cache.Fetch(sharedCtx, id, func(ctx context.Context) (Record, error) {
			return l.finder.FindPrincipal(ctx, id)
		})
	})
	var rec Record
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			if !errors.Is(res.Err, ErrNotFound) {
				l.logger.Error("load principal", slog.Int64("user_id", id), slog.Any("error", res.Err))
			}
			return nil, res.Err
		}
		rec = res.Val.(Record)
	}

	p, rejected := rec.Principal()
	if len(rejected) > 0 {
		l.logger.Warn("dropped malformed permissions",
			slog.Int64("user_id", id),
			slog.Int("count", len(rejected)))
	}
	return p, nil
}

// Invalidate forgets a single principal, or every principal when id is zero.
func (l *Loader) Invalidate(ctx context.Context, id int64) error {
	return l.cache.Invalidate(ctx, id)
}
