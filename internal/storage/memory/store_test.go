package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/storage"
)

func TestSaveMessage_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	base := &domain.Message{
		ID:         "m1",
		SiteID:     "site-1",
		ExternalID: "ext-1",
		StableHash: "env-abc-20250829",
		SentAt:     time.Now().UTC(),
	}
	require.NoError(t, store.SaveMessage(ctx, base))

	t.Run("相同外部ID被拒绝", func(t *testing.T) {
		dup := &domain.Message{ID: "m2", SiteID: "site-1", ExternalID: "ext-1"}
		assert.ErrorIs(t, store.SaveMessage(ctx, dup), storage.ErrMessageExists)
	})

	t.Run("相同信封指纹被拒绝", func(t *testing.T) {
		dup := &domain.Message{ID: "m3", SiteID: "site-1", StableHash: "env-abc-20250829"}
		assert.ErrorIs(t, store.SaveMessage(ctx, dup), storage.ErrMessageExists)
	})

	t.Run("不同站点互不影响", func(t *testing.T) {
		other := &domain.Message{ID: "m4", SiteID: "site-2", ExternalID: "ext-1", StableHash: "env-abc-20250829"}
		assert.NoError(t, store.SaveMessage(ctx, other))
	})

	t.Run("空外部ID和空指纹不参与约束", func(t *testing.T) {
		a := &domain.Message{ID: "m5", SiteID: "site-1"}
		b := &domain.Message{ID: "m6", SiteID: "site-1"}
		assert.NoError(t, store.SaveMessage(ctx, a))
		assert.NoError(t, store.SaveMessage(ctx, b))
	})
}

func TestGetMessageByExternalID(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	msg := &domain.Message{ID: "m1", SiteID: "site-1", ExternalID: "ext-1"}
	require.NoError(t, store.SaveMessage(ctx, msg))

	got, err := store.GetMessageByExternalID(ctx, "site-1", "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)

	_, err = store.GetMessageByExternalID(ctx, "site-1", "desconocido")
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)
}

func TestRecentMessages(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now().UTC()

	for i, m := range []*domain.Message{
		{ID: "m1", SiteID: "site-1", ConversationID: "c1", SentAt: now.Add(-3 * time.Hour)},
		{ID: "m2", SiteID: "site-1", ConversationID: "c1", SentAt: now.Add(-1 * time.Hour)},
		{ID: "m3", SiteID: "site-1", ConversationID: "c2", SentAt: now.Add(-2 * time.Hour)},
		{ID: "m4", SiteID: "site-2", ConversationID: "c1", SentAt: now},
	} {
		require.NoError(t, store.SaveMessage(ctx, m), "message %d", i)
	}

	t.Run("按会话过滤并按时间倒序", func(t *testing.T) {
		got, err := store.RecentMessages(ctx, storage.RecentMessagesQuery{SiteID: "site-1", ConversationID: "c1"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "m2", got[0].ID)
		assert.Equal(t, "m1", got[1].ID)
	})

	t.Run("限制条数", func(t *testing.T) {
		got, err := store.RecentMessages(ctx, storage.RecentMessagesQuery{SiteID: "site-1", Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "m2", got[0].ID)
	})

	t.Run("仅按站点过滤", func(t *testing.T) {
		got, err := store.RecentMessages(ctx, storage.RecentMessagesQuery{SiteID: "site-2"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "m4", got[0].ID)
	})
}

func TestProcessedObjects(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	rec := &domain.ProcessedObject{
		ID:         "p1",
		SiteID:     "site-1",
		ObjectType: domain.ObjectTypeEmail,
		ExternalID: "ext-1",
		Status:     domain.ProcessedStatusProcessed,
	}
	require.NoError(t, store.InsertProcessedObject(ctx, rec))

	t.Run("重复插入返回冲突错误", func(t *testing.T) {
		dup := &domain.ProcessedObject{ID: "p2", SiteID: "site-1", ObjectType: domain.ObjectTypeEmail, ExternalID: "ext-1"}
		assert.ErrorIs(t, store.InsertProcessedObject(ctx, dup), storage.ErrProcessedObjectExists)
	})

	t.Run("对象类型参与键", func(t *testing.T) {
		other := &domain.ProcessedObject{ID: "p3", SiteID: "site-1", ObjectType: "attachment", ExternalID: "ext-1"}
		assert.NoError(t, store.InsertProcessedObject(ctx, other))
	})

	t.Run("批量查询只返回已有记录", func(t *testing.T) {
		got, err := store.ListProcessedObjects(ctx, "site-1", domain.ObjectTypeEmail, []string{"ext-1", "ext-404"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "p1", got[0].ID)
	})

	t.Run("状态更新", func(t *testing.T) {
		require.NoError(t, store.UpdateProcessedObjectStatus(ctx, "p1", domain.ProcessedStatusFailed))
		got, err := store.GetProcessedObject(ctx, "site-1", domain.ObjectTypeEmail, "ext-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ProcessedStatusFailed, got.Status)
	})

	t.Run("不存在的记录", func(t *testing.T) {
		_, err := store.GetProcessedObject(ctx, "site-1", domain.ObjectTypeEmail, "nope")
		assert.ErrorIs(t, err, storage.ErrProcessedObjectNotFound)
		assert.ErrorIs(t, store.UpdateProcessedObjectStatus(ctx, "nope", domain.ProcessedStatusFailed), storage.ErrProcessedObjectNotFound)
	})
}
