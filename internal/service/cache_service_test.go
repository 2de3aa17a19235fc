package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
)

type memoryCacheRepo struct {
	values map[string][]byte
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRememberCachesLoadedValue(t *testing.T) {
	repo := &memoryCacheRepo{values: map[string][]byte{}}
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Remember(ctx, cache, "answer", 0, load)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, loads)

	require.NoError(t, cache.Invalidate(ctx, "answer"))
	_, err := Remember(ctx, cache, "answer", 0, load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	repo := &memoryCacheRepo{values: map[string][]byte{}}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	_, err := Remember(context.Background(), cache, "k", 0, func(context.Context) (string, error) {
		return "", errors.New("boom")
	})
	require.Error(t, err)
	assert.Empty(t, repo.values)
}

func TestRememberWithoutCache(t *testing.T) {
	v, err := Remember(context.Background(), nil, "k", 0, func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}
