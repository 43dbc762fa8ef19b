package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const versionKey = "stockin:version"

// CacheStats estadísticas del caché
type CacheStats struct {
	Hits          int64
	Misses        int64
	TotalRequests int64
	TotalKeys     int
}

// StockInCache caché multi-nivel para páginas de listado y estadísticas de
// ingresos. Las claves llevan una versión; cualquier mutación confirmada
// incrementa la versión y deja huérfanas todas las entradas anteriores.
type StockInCache struct {
	// L1 Cache: memoria local (más rápido)
	l1Cache map[string][]byte
	l1Mutex sync.RWMutex

	// L2 Cache: Redis (compartido entre instancias)
	redisClient *redis.Client

	maxL1Size int
	ttl       time.Duration

	logger *zap.Logger

	statsMutex sync.RWMutex
	hits       int64
	misses     int64
}

// NewStockInCache crea una nueva instancia del caché
func NewStockInCache(redisClient *redis.Client, maxL1Size int, ttl time.Duration, logger *zap.Logger) *StockInCache {
	return &StockInCache{
		l1Cache:     make(map[string][]byte),
		redisClient: redisClient,
		maxL1Size:   maxL1Size,
		ttl:         ttl,
		logger:      logger,
	}
}

// GetStats retorna estadísticas del caché
func (c *StockInCache) GetStats() CacheStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()

	c.l1Mutex.RLock()
	totalKeys := len(c.l1Cache)
	c.l1Mutex.RUnlock()

	return CacheStats{
		Hits:          c.hits,
		Misses:        c.misses,
		TotalRequests: c.hits + c.misses,
		TotalKeys:     totalKeys,
	}
}

// version obtiene la versión vigente del namespace de ingresos
func (c *StockInCache) version(ctx context.Context) int64 {
	v, err := c.redisClient.Get(ctx, versionKey).Int64()
	if err != nil {
		return 0
	}
	return v
}

// Invalidate incrementa la versión; las claves viejas expiran por TTL
func (c *StockInCache) Invalidate(ctx context.Context) {
	if err := c.redisClient.Incr(ctx, versionKey).Err(); err != nil {
		c.logger.Warn("Failed to bump cache version", zap.Error(err))
	}
	c.l1Mutex.Lock()
	c.l1Cache = make(map[string][]byte)
	c.l1Mutex.Unlock()
}

// listKey clave de una página de listado para los parámetros dados
func (c *StockInCache) listKey(ctx context.Context, params string) string {
	return fmt.Sprintf("stockin:list:v%d:%s", c.version(ctx), params)
}

// statsKey clave de estadísticas para el rango dado
func (c *StockInCache) statsKey(ctx context.Context, rangeKey string) string {
	return fmt.Sprintf("stockin:stats:v%d:%s", c.version(ctx), rangeKey)
}

// GetList busca una página de listado cacheada
func (c *StockInCache) GetList(ctx context.Context, params string) (*models.ListResult, bool) {
	var result models.ListResult
	if c.get(ctx, c.listKey(ctx, params), &result) {
		return &result, true
	}
	return nil, false
}

// SetList almacena una página de listado
func (c *StockInCache) SetList(ctx context.Context, params string, result *models.ListResult) {
	c.set(ctx, c.listKey(ctx, params), result)
}

// GetStatistics busca estadísticas cacheadas
func (c *StockInCache) GetStatistics(ctx context.Context, rangeKey string) (*models.Statistics, bool) {
	var stats models.Statistics
	if c.get(ctx, c.statsKey(ctx, rangeKey), &stats) {
		return &stats, true
	}
	return nil, false
}

// SetStatistics almacena estadísticas
func (c *StockInCache) SetStatistics(ctx context.Context, rangeKey string, stats *models.Statistics) {
	c.set(ctx, c.statsKey(ctx, rangeKey), stats)
}

// get busca primero en L1 y después en Redis, promoviendo a L1 en hit
func (c *StockInCache) get(ctx context.Context, key string, dest interface{}) bool {
	start := time.Now()

	if data := c.getFromL1(key); data != nil {
		if err := json.Unmarshal(data, dest); err == nil {
			c.recordHit()
			c.logger.Debug("L1 cache hit",
				zap.String("key", key),
				zap.Duration("latency", time.Since(start)))
			return true
		}
	}

	data, err := c.redisClient.Get(ctx, key).Bytes()
	if err == nil {
		if err := json.Unmarshal(data, dest); err == nil {
			c.setToL1(key, data)
			c.recordHit()
			c.logger.Debug("L2 cache hit",
				zap.String("key", key),
				zap.Duration("latency", time.Since(start)))
			return true
		}
	}

	c.recordMiss()
	c.logger.Debug("Cache miss",
		zap.String("key", key),
		zap.Duration("latency", time.Since(start)))
	return false
}

// set almacena en ambos niveles
func (c *StockInCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to marshal cache entry", zap.String("key", key), zap.Error(err))
		return
	}

	c.setToL1(key, data)

	if err := c.redisClient.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to store cache entry in Redis", zap.String("key", key), zap.Error(err))
	}
}

func (c *StockInCache) recordHit() {
	c.statsMutex.Lock()
	c.hits++
	c.statsMutex.Unlock()
}

func (c *StockInCache) recordMiss() {
	c.statsMutex.Lock()
	c.misses++
	c.statsMutex.Unlock()
}

func (c *StockInCache) getFromL1(key string) []byte {
	c.l1Mutex.RLock()
	defer c.l1Mutex.RUnlock()
	return c.l1Cache[key]
}

func (c *StockInCache) setToL1(key string, data []byte) {
	c.l1Mutex.Lock()
	defer c.l1Mutex.Unlock()

	if len(c.l1Cache) >= c.maxL1Size {
		c.evictOne()
	}

	c.l1Cache[key] = data
}

// evictOne elimina una entrada arbitraria cuando L1 está lleno
func (c *StockInCache) evictOne() {
	for key := range c.l1Cache {
		delete(c.l1Cache, key)
		break
	}
}

// Stats retorna estadísticas del caché como mapa (para monitoring)
func (c *StockInCache) Stats() map[string]interface{} {
	stats := c.GetStats()
	hitRate := 0.0
	if stats.TotalRequests > 0 {
		hitRate = float64(stats.Hits) / float64(stats.TotalRequests)
	}
	return map[string]interface{}{
		"hits":           stats.Hits,
		"misses":         stats.Misses,
		"total_requests": stats.TotalRequests,
		"total_keys":     stats.TotalKeys,
		"hit_rate":       hitRate,
	}
}
