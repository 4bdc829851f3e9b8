package linkstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/nao1215/linkharvest/internal/model"
)

// DefaultRedisPrefix namespaces the keys written by RedisStore.
const DefaultRedisPrefix = "linkharvest"

// RedisStore keeps each domain's links in a Redis set named
// <prefix>:links:<domain> and the known domains in <prefix>:domains.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore returns a RedisStore using client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the connection to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) domainsKey() string {
	return s.prefix + ":domains"
}

func (s *RedisStore) linksKey(domain string) string {
	return fmt.Sprintf("%s:links:%s", s.prefix, domain)
}

// Load reads every known domain and its links.
func (s *RedisStore) Load(ctx context.Context) (model.Links, error) {
	domains, err := s.client.SMembers(ctx, s.domainsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	links := model.NewLinks()
	if len(domains) == 0 {
		return links, nil
	}

	pipe := s.client.Pipeline()
	cmds := make(map[string]*redis.StringSliceCmd, len(domains))
	for _, domain := range domains {
		cmds[domain] = pipe.SMembers(ctx, s.linksKey(domain))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}

	for domain, cmd := range cmds {
		urls := cmd.Val()
		sort.Strings(urls)
		links[domain] = urls
	}
	return links, nil
}

// Save replaces the stored mapping inside a MULTI/EXEC transaction.
// Domains absent from links are removed.
func (s *RedisStore) Save(ctx context.Context, links model.Links) error {
	previous, err := s.client.SMembers(ctx, s.domainsKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list domains: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, domain := range previous {
			pipe.Del(ctx, s.linksKey(domain))
		}
		pipe.Del(ctx, s.domainsKey())

		for _, domain := range links.Domains() {
			pipe.SAdd(ctx, s.domainsKey(), domain)

			urls := model.NewLinkSet(links[domain]...).Sorted()
			if len(urls) == 0 {
				continue
			}
			members := make([]any, len(urls))
			for i, u := range urls {
				members[i] = u
			}
			pipe.SAdd(ctx, s.linksKey(domain), members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save links: %w", err)
	}
	return nil
}
