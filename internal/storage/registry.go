package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kavach/engine/pkg/logger"
)

// ArtifactKeyPrefix prefijo de keys Redis para artefactos publicados
const ArtifactKeyPrefix = "kavach:artifact:"

// ErrArtifactUnknown el registro no conoce el artefacto
var ErrArtifactUnknown = errors.New("artifact not registered")

// Registry guarda quién publicó cada artefacto y cuándo
type Registry interface {
	Register(ctx context.Context, art *Artifact) error
	Lookup(ctx context.Context, name string) (*Artifact, error)
	Forget(ctx context.Context, name string) error
}

// MemoryRegistry registro en proceso, usado cuando Redis no está habilitado
type MemoryRegistry struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

type memoryEntry struct {
	art       Artifact
	expiresAt time.Time
}

// NewMemoryRegistry crea un registro en memoria. ttl <= 0 no expira nunca.
func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	return &MemoryRegistry{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (r *MemoryRegistry) Register(_ context.Context, art *Artifact) error {
	entry := memoryEntry{art: *art}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.mu.Lock()
	r.items[art.Name] = entry
	r.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) Lookup(_ context.Context, name string) (*Artifact, error) {
	r.mu.RLock()
	entry, ok := r.items[name]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrArtifactUnknown
	}
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.mu.Lock()
		delete(r.items, name)
		r.mu.Unlock()
		return nil, ErrArtifactUnknown
	}
	art := entry.art
	return &art, nil
}

func (r *MemoryRegistry) Forget(_ context.Context, name string) error {
	r.mu.Lock()
	delete(r.items, name)
	r.mu.Unlock()
	return nil
}

// RedisRegistry registro compartido entre réplicas del engine
type RedisRegistry struct {
	redis  *redis.Client
	logger *logger.Logger
	ttl    time.Duration
}

// NewRedisRegistry crea un registro respaldado por Redis
func NewRedisRegistry(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisRegistry {
	return &RedisRegistry{redis: client, logger: log, ttl: ttl}
}

// NewRedisClient abre el cliente a partir de REDIS_URL y comprueba la conexión
func NewRedisClient(ctx context.Context, url, password string, db int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	if db > 0 {
		opts.DB = db
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (r *RedisRegistry) key(name string) string {
	return ArtifactKeyPrefix + name
}

func (r *RedisRegistry) Register(ctx context.Context, art *Artifact) error {
	data, err := json.Marshal(art)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := r.redis.Set(ctx, r.key(art.Name), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, name string) (*Artifact, error) {
	data, err := r.redis.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrArtifactUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		r.logger.Errorw("Failed to unmarshal artifact", "key", r.key(name), "error", err)
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	return &art, nil
}

func (r *RedisRegistry) Forget(ctx context.Context, name string) error {
	if err := r.redis.Del(ctx, r.key(name)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}
