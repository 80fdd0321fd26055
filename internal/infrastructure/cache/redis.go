package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var _ inventory.AvailabilityCache = (*RedisAvailabilityCache)(nil)

const defaultKeyPrefix = "atp"

// RedisAvailabilityCache vistas ATP en Redis. Cada (tenant, ítem) tiene un contador de versión;
// las entradas se guardan bajo la versión vigente e Invalidate solo incrementa el contador, con
// lo que todas las vistas anteriores dejan de ser alcanzables y expiran por TTL.
type RedisAvailabilityCache struct {
	client     *redis.Client
	ownsClient bool
	prefix     string
	ttl        time.Duration
	log        *logger.Logger
}

// NewRedisAvailabilityCache conecta con Redis y verifica la conexión.
func NewRedisAvailabilityCache(addr, password string, db int, ttl time.Duration, log *logger.Logger) (*RedisAvailabilityCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	c := NewRedisAvailabilityCacheWithClient(client, ttl, log)
	c.ownsClient = true
	return c, nil
}

// NewRedisAvailabilityCacheWithClient usa un cliente existente; quien lo creó lo cierra.
func NewRedisAvailabilityCacheWithClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisAvailabilityCache{client: client, prefix: defaultKeyPrefix, ttl: ttl, log: log}
}

func (c *RedisAvailabilityCache) versionKey(tenantID, itemID string) string {
	return fmt.Sprintf("%s:ver:%s:%s", c.prefix, tenantID, itemID)
}

func (c *RedisAvailabilityCache) entryKey(tenantID, itemID string, version int64, field string) string {
	return fmt.Sprintf("%s:view:%s:%s:%d:%s", c.prefix, tenantID, itemID, version, field)
}

// Version contador vigente del (tenant, ítem).
func (c *RedisAvailabilityCache) Version(ctx context.Context, tenantID, itemID string) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(tenantID, itemID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cache version: %w", err)
	}
	return v, nil
}

// Get devuelve la vista vigente si existe.
func (c *RedisAvailabilityCache) Get(ctx context.Context, tenantID, itemID, field string) (*entity.AvailabilityView, bool, error) {
	ver, err := c.Version(ctx, tenantID, itemID)
	if err != nil {
		return nil, false, err
	}
	key := c.entryKey(tenantID, itemID, ver, field)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached view: %w", err)
	}
	var view entity.AvailabilityView
	if err := json.Unmarshal(data, &view); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("entrada de caché corrupta, se descarta")
		_ = c.client.Del(ctx, key).Err()
		return nil, false, nil
	}
	return &view, true, nil
}

// Set guarda la vista bajo la versión con la que se calculó. Si Invalidate avanzó el contador
// entretanto, la entrada queda bajo una versión que Get ya no consulta y expira por TTL.
func (c *RedisAvailabilityCache) Set(ctx context.Context, tenantID, itemID, field string, version int64, view *entity.AvailabilityView) error {
	if view == nil {
		return nil
	}
	ttl := view.Lifetime(c.ttl, time.Now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	if err := c.client.Set(ctx, c.entryKey(tenantID, itemID, version, field), data, ttl).Err(); err != nil {
		return fmt.Errorf("set cached view: %w", err)
	}
	return nil
}

// Invalidate incrementa la versión del (tenant, ítem).
func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, tenantID, itemID string) error {
	if err := c.client.Incr(ctx, c.versionKey(tenantID, itemID)).Err(); err != nil {
		return fmt.Errorf("bump cache version: %w", err)
	}
	return nil
}

// Close cierra el cliente si fue creado por la caché.
func (c *RedisAvailabilityCache) Close() error {
	if !c.ownsClient {
		return nil
	}
	return c.client.Close()
}
