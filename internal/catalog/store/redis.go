package store

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis guarda cada coleção em uma chave; SET substitui o valor atomicamente
type Redis struct {
	R      *redis.Client
	Prefix string
}

func NewRedis(r *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "palpitei"
	}
	return &Redis{R: r, Prefix: prefix}
}

func (s *Redis) key(name string) string { return s.Prefix + ":collection:" + name }

func (s *Redis) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := s.R.Get(ctx, s.key(name)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Redis) Save(ctx context.Context, name string, data []byte) error {
	return s.R.Set(ctx, s.key(name), data, 0).Err()
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.R.Ping(ctx).Err()
}
