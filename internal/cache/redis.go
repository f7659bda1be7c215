// Package cache Redis 기반 검색 결과 캐시 어댑터를 제공합니다.
//
// 캐시는 성능 최적화 수단일 뿐 정합성의 원천이 아니므로, 모든 연산은 실패를
// 내부에서 로깅하고 미스로 처리합니다. 캐시 장애가 검색 파이프라인을 중단시키는
// 일은 없습니다.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/darkkaiser/price-search-server/internal/engine"
)

// RedisCache engine.Cache의 Redis 구현체.
//
// 키 구성은 다음과 같습니다.
//
//	{prefix}:q:{정규화된 검색어}   → 검색 결과(JSON)
//	{prefix}:neg:{정규화된 검색어} → 결과 없음 마커(메시지 문자열)
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache Redis 클라이언트와 키 접두어로 캐시 어댑터를 생성합니다.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
	}
}

// Ping Redis 연결 상태를 확인합니다.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get 검색 결과 캐시를 조회합니다. 미스이거나 연산이 실패하면 nil을 반환합니다.
func (c *RedisCache) Get(ctx context.Context, key string, timeout time.Duration) *engine.CacheEntry {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, err := c.client.Get(ctx, c.positiveKey(key)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warnf("캐시 조회가 실패하였습니다. (key:%s, error:%s)", key, err)
		}
		return nil
	}
	return entryFromJSON(raw)
}

// Set 검색 결과를 캐시에 저장합니다.
func (c *RedisCache) Set(ctx context.Context, key string, entry *engine.CacheEntry, ttl time.Duration) {
	data, err := json.Marshal(entry)
	if err != nil {
		log.Warnf("캐시 항목 직렬화가 실패하였습니다. (key:%s, error:%s)", key, err)
		return
	}

	if err := c.client.Set(ctx, c.positiveKey(key), data, ttl).Err(); err != nil {
		log.Warnf("캐시 저장이 실패하였습니다. (key:%s, error:%s)", key, err)
	}
}

// GetNegative 결과 없음 마커를 조회합니다.
func (c *RedisCache) GetNegative(ctx context.Context, key string) (string, bool) {
	message, err := c.client.Get(ctx, c.negativeKey(key)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warnf("결과 없음 마커 조회가 실패하였습니다. (key:%s, error:%s)", key, err)
		}
		return "", false
	}
	return message, true
}

// SetNegative 결과 없음 마커를 저장합니다.
func (c *RedisCache) SetNegative(ctx context.Context, key string, message string, ttl time.Duration) {
	if err := c.client.Set(ctx, c.negativeKey(key), message, ttl).Err(); err != nil {
		log.Warnf("결과 없음 마커 저장이 실패하였습니다. (key:%s, error:%s)", key, err)
	}
}

// Delete 검색 결과 캐시와 결과 없음 마커를 함께 삭제합니다.
// 검색 결과 항목이 존재했으면 true를 반환합니다.
func (c *RedisCache) Delete(ctx context.Context, key string) bool {
	deleted, err := c.client.Del(ctx, c.positiveKey(key)).Result()
	if err != nil {
		log.Warnf("캐시 삭제가 실패하였습니다. (key:%s, error:%s)", key, err)
		return false
	}
	c.client.Del(ctx, c.negativeKey(key))
	return deleted > 0
}

func (c *RedisCache) positiveKey(key string) string {
	return c.prefix + ":q:" + key
}

func (c *RedisCache) negativeKey(key string) string {
	return c.prefix + ":neg:" + key
}

// entryFromJSON 캐시 JSON을 해석합니다. 과거 스키마가 사용하던 url 키도
// 함께 조회하여 하위 호환을 유지합니다. 저장 시에는 항상 product_url 키만
// 기록됩니다.
func entryFromJSON(raw string) *engine.CacheEntry {
	if !gjson.Valid(raw) {
		return nil
	}

	doc := gjson.Parse(raw)
	productURL := doc.Get("product_url").String()
	if productURL == "" {
		productURL = doc.Get("url").String()
	}
	price := int(doc.Get("price").Int())
	if productURL == "" || price <= 0 {
		return nil
	}

	return &engine.CacheEntry{
		ProductURL:   productURL,
		Price:        price,
		ProductName:  doc.Get("product_name").String(),
		Mall:         doc.Get("mall").String(),
		FreeShipping: doc.Get("free_shipping").Bool(),
	}
}
