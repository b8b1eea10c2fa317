package cache

import (
	"context"
	"time"

	"github.com/eko/gocache/lib/v4/store"
	redisStore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// R is the raw redis connection, used by the feed relay.
var R *redis.Client

// S is the cache store shared by the services.
var S store.StoreInterface

func NewCache() error {
	R = redis.NewClient(&redis.Options{
		Addr:     viper.GetString("cache.redis_addr"),
		Password: viper.GetString("cache.redis_password"),
		DB:       viper.GetInt("cache.redis_db"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := R.Ping(ctx).Err(); err != nil {
		return err
	}

	ttl := viper.GetDuration("cache.ttl")
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	S = redisStore.NewRedis(R, store.WithExpiration(ttl))

	return nil
}
