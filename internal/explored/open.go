package explored

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/deskrank/internal/config"
)

// Open creates the store selected by cfg.Explored.Backend. Stores holding a
// connection implement io.Closer.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Explored.Backend {
	case "redis":
		s, err := NewRedisStore(ctx, cfg.Explored.RedisAddr, cfg.Explored.RedisPassword,
			cfg.Explored.RedisDB, cfg.Explored.RedisPrefix, logger)
		if err != nil {
			return nil, fmt.Errorf("explored store: %w", err)
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return NewFileStore(cfg.Paths.Explored, logger), nil
	}
}
