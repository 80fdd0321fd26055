// Package cache implementaciones de la caché de lectura de disponibilidad (ATP).
package cache

import (
	"io"

	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/pkg/config"
	"github.com/jhoicas/inventario-core/pkg/logger"
)

// Cache caché ATP con cierre de recursos.
type Cache interface {
	inventory.AvailabilityCache
	io.Closer
}

// New elige Redis si está habilitado; si la conexión falla cae a la caché en memoria del proceso,
// que no comparte invalidaciones entre instancias.
func New(cfg config.Config, log *logger.Logger) Cache {
	ttl := cfg.Inventory.AvailabilityCacheTTL
	if !cfg.Redis.Enabled {
		log.Info().Dur("ttl", ttl).Msg("caché de disponibilidad en memoria")
		return NewInMemoryAvailabilityCache(ttl)
	}
	c, err := NewRedisAvailabilityCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, ttl, log)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, se usa caché en memoria")
		return NewInMemoryAvailabilityCache(ttl)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", ttl).Msg("caché de disponibilidad en redis")
	return c
}
