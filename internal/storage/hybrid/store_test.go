package hybrid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uncodier/API-sub015/internal/cache"
	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/storage"
	"github.com/Uncodier/API-sub015/internal/storage/memory"
)

func TestHybridStore_Ledger(t *testing.T) {
	ctx := context.Background()

	t.Run("台账写入委托给基础存储", func(t *testing.T) {
		base := memory.NewStore()
		s := NewStore(base, nil)

		err := s.InsertProcessedObject(ctx, &domain.ProcessedObject{
			ID:         "rec-1",
			SiteID:     "site-1",
			ObjectType: domain.ObjectTypeEmail,
			ExternalID: "msg-1",
			Status:     domain.ProcessedStatusProcessed,
		})
		require.NoError(t, err)

		rec, err := base.GetProcessedObject(ctx, "site-1", domain.ObjectTypeEmail, "msg-1")
		require.NoError(t, err)
		assert.Equal(t, "rec-1", rec.ID)
	})

	t.Run("重复写入仍返回已存在错误", func(t *testing.T) {
		base := memory.NewStore()
		s := NewStore(base, nil, WithLocalCache(cache.NewExistenceCache(time.Minute)))

		record := &domain.ProcessedObject{
			ID:         "rec-1",
			SiteID:     "site-1",
			ObjectType: domain.ObjectTypeEmail,
			ExternalID: "msg-1",
		}
		require.NoError(t, s.InsertProcessedObject(ctx, record))

		dup := *record
		dup.ID = "rec-2"
		err := s.InsertProcessedObject(ctx, &dup)
		assert.ErrorIs(t, err, storage.ErrProcessedObjectExists)
	})
}

func TestHybridStore_LocalCache(t *testing.T) {
	ctx := context.Background()

	t.Run("写入后本地缓存命中", func(t *testing.T) {
		base := memory.NewStore()
		s := NewStore(base, nil, WithLocalCache(cache.NewExistenceCache(time.Minute)))

		assert.False(t, s.ProcessedInCache(ctx, "site-1", domain.ObjectTypeEmail, "msg-1"))

		require.NoError(t, s.InsertProcessedObject(ctx, &domain.ProcessedObject{
			ID:         "rec-1",
			SiteID:     "site-1",
			ObjectType: domain.ObjectTypeEmail,
			ExternalID: "msg-1",
		}))

		assert.True(t, s.ProcessedInCache(ctx, "site-1", domain.ObjectTypeEmail, "msg-1"))
		assert.False(t, s.ProcessedInCache(ctx, "site-2", domain.ObjectTypeEmail, "msg-1"))
	})

	t.Run("未启用缓存时总是未命中", func(t *testing.T) {
		s := NewStore(memory.NewStore(), nil)
		assert.False(t, s.ProcessedInCache(ctx, "site-1", domain.ObjectTypeEmail, "msg-1"))
	})
}

func TestHybridStore_Messages(t *testing.T) {
	ctx := context.Background()
	base := memory.NewStore()
	s := NewStore(base, nil)

	msg := &domain.Message{
		ID:         "m-1",
		SiteID:     "site-1",
		ExternalID: "msg-1",
		Subject:    "Consulta",
		SentAt:     time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveMessage(ctx, msg))

	got, err := s.GetMessageByExternalID(ctx, "site-1", "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.ID)
}
