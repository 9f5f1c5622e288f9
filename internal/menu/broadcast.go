package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// InvalidateChannel is the Redis channel carrying navigation invalidations.
const InvalidateChannel = "portal:menu:invalidate"

const sentinelPrefix = "menu-invalidate-"

// Broadcaster propagates navigation invalidations to other processes.
// Delivery is best effort and at least once. A listener never receives the
// invalidations published through the same broadcaster; the publisher has
// already refreshed.
type Broadcaster interface {
	Publish(ctx context.Context) error
	// Listen calls fn for every invalidation until ctx is done. It returns
	// once the subscription is established.
	Listen(ctx context.Context, fn func()) error
}

// NopBroadcaster drops every invalidation.
type NopBroadcaster struct{}

// Publish implements Broadcaster.
func (NopBroadcaster) Publish(context.Context) error { return nil }

// Listen implements Broadcaster.
func (NopBroadcaster) Listen(context.Context, func()) error { return nil }

// RedisBroadcaster uses Redis pub/sub.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRedisBroadcaster constructs a RedisBroadcaster on InvalidateChannel.
func NewRedisBroadcaster(client *redis.Client, logger *slog.Logger) *RedisBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBroadcaster{client: client, channel: InvalidateChannel, origin: uuid.NewString(), logger: logger}
}

// Publish sends a sentinel message of the form "<origin>:<unix nanos>".
func (b *RedisBroadcaster) Publish(ctx context.Context) error {
	if b == nil || b.client == nil {
		return nil
	}
	payload := b.origin + ":" + strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("menu: publish invalidation: %w", err)
	}
	return nil
}

// Listen subscribes to the invalidation channel.
func (b *RedisBroadcaster) Listen(ctx context.Context, fn func()) error {
	if b == nil || b.client == nil {
		return nil
	}
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("menu: subscribe %s: %w", b.channel, err)
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if origin, _, _ := strings.Cut(msg.Payload, ":"); origin == b.origin {
					continue
				}
				b.logger.Debug("menu invalidation received", slog.String("payload", msg.Payload))
				fn()
			}
		}
	}()
	return nil
}

// FileBroadcaster signals through a shared directory: publishing writes a
// sentinel file and removes it right away, listeners watch for its creation.
type FileBroadcaster struct {
	dir    string
	origin string
	logger *slog.Logger
}

// NewFileBroadcaster constructs a FileBroadcaster rooted at dir, creating it
// when missing.
func NewFileBroadcaster(dir string, logger *slog.Logger) (*FileBroadcaster, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("menu: sentinel directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("menu: create sentinel directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileBroadcaster{dir: dir, origin: uuid.NewString(), logger: logger}, nil
}

// Publish writes then removes a sentinel file.
func (b *FileBroadcaster) Publish(context.Context) error {
	name := filepath.Join(b.dir, b.ownPrefix()+strconv.FormatInt(time.Now().UnixNano(), 10))
	if err := os.WriteFile(name, []byte("1"), 0o644); err != nil {
		return fmt.Errorf("menu: write sentinel: %w", err)
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("menu: remove sentinel: %w", err)
	}
	return nil
}

// Listen watches the sentinel directory.
func (b *FileBroadcaster) Listen(ctx context.Context, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("menu: create watcher: %w", err)
	}
	if err := watcher.Add(b.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("menu: watch %s: %w", b.dir, err)
	}
	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				base := filepath.Base(event.Name)
				if event.Op&fsnotify.Create == 0 || !strings.HasPrefix(base, sentinelPrefix) ||
					strings.HasPrefix(base, b.ownPrefix()) {
					continue
				}
				fn()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				b.logger.Warn("sentinel watcher error", slog.Any("error", err))
			}
		}
	}()
	return nil
}

func (b *FileBroadcaster) ownPrefix() string {
	return sentinelPrefix + b.origin + "-"
}

// Watch refreshes resolver whenever broadcaster delivers an invalidation.
func Watch(ctx context.Context, broadcaster Broadcaster, resolver *Resolver) error {
	if broadcaster == nil || resolver == nil {
		return nil
	}
	return broadcaster.Listen(ctx, func() {
		resolver.RefreshMenu(ctx)
	})
}
