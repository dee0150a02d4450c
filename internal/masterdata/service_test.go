package masterdata

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/eduims/eduims-backend/internal/platform/cache"
	"github.com/eduims/eduims-backend/internal/shared"
)

func newSelectService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	codec := shared.NewIDCodec("masterdata-test-secret")

	return &Service{
		cache:  cache.NewJSONCache(client, time.Minute),
		codec:  codec,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, mr
}

func TestSelectItemsCachesLoaderResult(t *testing.T) {
	svc, _ := newSelectService(t)

	calls := 0
	loader := func(context.Context) ([]labelRow, error) {
		calls++
		return []labelRow{{ID: 1, Label: "Head Office"}, {ID: 2, Label: "North Campus"}}, nil
	}

	items, err := svc.selectItems(context.Background(), "select:test", loader)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Head Office", items[0].Label)
	require.NotEmpty(t, items[0].RecordID)

	// second fetch is served from redis
	again, err := svc.selectItems(context.Background(), "select:test", loader)
	require.NoError(t, err)
	require.Len(t, again, 2)
	require.Equal(t, 1, calls)

	// opaque ids still decode to the stored id
	id, err := svc.codec.Decode(again[0].RecordID)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
}

func TestSelectItemsReloadsAfterInvalidation(t *testing.T) {
	svc, _ := newSelectService(t)

	calls := 0
	loader := func(context.Context) ([]labelRow, error) {
		calls++
		return []labelRow{{ID: 7, Label: "Fee Module"}}, nil
	}

	_, err := svc.selectItems(context.Background(), cacheKeyProducts, loader)
	require.NoError(t, err)

	svc.invalidate(context.Background(), cacheKeyProducts)

	_, err = svc.selectItems(context.Background(), cacheKeyProducts, loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestSelectItemsFallsThroughWithoutRedis(t *testing.T) {
	codec := shared.NewIDCodec("masterdata-test-secret")
	svc := &Service{
		cache:  cache.NewJSONCache(nil, time.Minute),
		codec:  codec,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	items, err := svc.selectItems(context.Background(), "select:anything", func(context.Context) ([]labelRow, error) {
		return []labelRow{{ID: 3, Label: "Sessions 2026-27"}}, nil
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
}
