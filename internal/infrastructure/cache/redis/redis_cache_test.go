package redis

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKeyNamespace(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	plain := newRedisCache(client, 0, "")
	assert.Equal(t, "analysis:abc", plain.key("analysis:abc"))
	assert.Equal(t, 10*time.Minute, plain.ttl)

	scoped := newRedisCache(client, time.Minute, "staging")
	assert.Equal(t, "staging:analysis:*", scoped.key("analysis:*"))
	assert.Equal(t, time.Minute, scoped.ttl)
}
