package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"edgewallet.io/wallet-broker/internal/config"
	"edgewallet.io/wallet-broker/pkg/errors"
	"edgewallet.io/wallet-broker/pkg/log"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
)

var (
	Redis       *redis.Client
	RateLimiter *redis_rate.Limiter
)

func Init(cred *config.DBCredential) {
	db, _ := strconv.ParseInt(cred.Database, 10, 64)
	Redis = redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%v:%v", cred.Address, cred.Port),
		DB:   int(db),
	})
	if _, err := Redis.Ping(context.TODO()).Result(); err != nil {
		log.Fatalf("ping to redis:%v", err)
	}
	RateLimiter = redis_rate.NewLimiter(Redis)
}

func Close() {
	if Redis != nil {
		Redis.Close()
		Redis = nil
	}
}

const answeredKeyPrefix = "wc:answered:"

// MarkRequestAnswered records that a (topic, id) request was answered and
// reports whether this was the first answer. Backs the in-process
// answered-once guard across restarts. With no redis configured the
// in-process guard stands alone and this reports first=true.
func MarkRequestAnswered(ctx context.Context, topic string, id int64, ttl time.Duration) (bool, error) {
	if Redis == nil {
		return true, nil
	}
	key := fmt.Sprintf("%v%v:%v", answeredKeyPrefix, topic, id)
	first, err := Redis.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, errors.WrapAndReport(err, "mark request answered")
	}
	return first, nil
}

const sessionRequestsPerMinute = 30

// AllowSessionRequest rate limits inbound signing requests per session topic,
// so a misbehaving dApp cannot flood the decision surface. Allows everything
// when redis is not configured.
func AllowSessionRequest(ctx context.Context, topic string) bool {
	if RateLimiter == nil {
		return true
	}
	res, err := RateLimiter.Allow(ctx, "wc:reqrate:"+topic, redis_rate.PerMinute(sessionRequestsPerMinute))
	if err != nil {
		log.Errorf("session request rate limit check:%v", err)
		return true
	}
	return res.Allowed > 0
}

// DeleteFromPrefix drops every cache key under a prefix.
func DeleteFromPrefix(prefix string) error {
	var (
		cursor uint64
		match        = fmt.Sprintf("%v*", prefix)
		ctx          = context.TODO()
		count  int64 = 200
	)
	log.Debugf("deleting cache pattern %v", match)
	for {
		keys, c, err := Redis.Scan(ctx, cursor, match, count).Result()
		if err != nil {
			return errors.WrapAndReport(err, "scan caches")
		}
		cursor = c
		if len(keys) > 0 {
			err = Redis.Del(ctx, keys...).Err()
			if err != nil {
				return errors.WrapAndReport(err, "delete caches")
			}
		}
		if c == 0 {
			return nil
		}
	}
}
