// cache.go — LRU-кэш метаданных реликтов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gorelic/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных.",
	})
)

// CacheService — LRU-кэш метаданных реликтов с автоматическим TTL.
// Каждый экземпляр сервера имеет собственный in-memory кэш.
//
// Кэш хранит и выдаёт копии записей: кэшированная структура разделяется
// горутинами, а вызывающие мутируют возвращённые значения (счётчик
// просмотров). Без копий параллельные чтения гонялись бы на одном объекте.
type CacheService struct {
	cache *expirable.LRU[string, *model.Relic]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.Relic](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает копию реликта из кэша по ID.
// Возвращает (запись, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(id string) (*model.Relic, bool) {
	val, ok := c.cache.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		cp := *val
		return &cp, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set сохраняет копию записи в кэше.
// Последующие мутации rl вызывающим кэш не затрагивают.
func (c *CacheService) Set(id string, rl *model.Relic) {
	cp := *rl
	c.cache.Add(id, &cp)
}

// Delete удаляет запись из кэша (инвалидация при изменении или удалении).
func (c *CacheService) Delete(id string) {
	c.cache.Remove(id)
}
