package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uncodier/API-sub015/internal/storage/memory"
)

func TestProcessedObjectService_MarkAndCheck(t *testing.T) {
	ctx := context.Background()
	svc := NewProcessedObjectService(memory.NewStore(), nil, nil)

	t.Run("未标记时返回未处理", func(t *testing.T) {
		processed, err := svc.IsProcessed(ctx, "site-1", "msg-1")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("标记后返回已处理", func(t *testing.T) {
		require.NoError(t, svc.MarkProcessed(ctx, "site-1", "msg-1", nil))
		processed, err := svc.IsProcessed(ctx, "site-1", "msg-1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("重复标记是无操作", func(t *testing.T) {
		assert.NoError(t, svc.MarkProcessed(ctx, "site-1", "msg-1", nil))
		assert.NoError(t, svc.MarkProcessed(ctx, "site-1", "msg-1", map[string]string{"attempt": "2"}))
	})

	t.Run("空ID直接视为未处理", func(t *testing.T) {
		processed, err := svc.IsProcessed(ctx, "site-1", "")
		require.NoError(t, err)
		assert.False(t, processed)
		assert.NoError(t, svc.MarkProcessed(ctx, "site-1", "", nil))
	})

	t.Run("不同站点互不影响", func(t *testing.T) {
		processed, err := svc.IsProcessed(ctx, "site-2", "msg-1")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestProcessedObjectService_FilterUnprocessed(t *testing.T) {
	ctx := context.Background()
	svc := NewProcessedObjectService(memory.NewStore(), nil, nil)

	require.NoError(t, svc.MarkProcessed(ctx, "site-1", "msg-2", nil))

	t.Run("已处理和未处理分组，顺序保持", func(t *testing.T) {
		unprocessed, already, err := svc.FilterUnprocessed(ctx, "site-1", []string{"msg-1", "msg-2", "msg-3", ""})
		require.NoError(t, err)
		assert.Equal(t, []string{"msg-1", "msg-3"}, unprocessed)
		assert.Equal(t, []string{"msg-2"}, already)
	})

	t.Run("全部标记后第二次过滤为空", func(t *testing.T) {
		require.NoError(t, svc.MarkProcessed(ctx, "site-1", "msg-1", nil))
		require.NoError(t, svc.MarkProcessed(ctx, "site-1", "msg-3", nil))

		unprocessed, already, err := svc.FilterUnprocessed(ctx, "site-1", []string{"msg-1", "msg-2", "msg-3"})
		require.NoError(t, err)
		assert.Empty(t, unprocessed)
		assert.Equal(t, []string{"msg-1", "msg-2", "msg-3"}, already)
	})

	t.Run("空输入返回空结果", func(t *testing.T) {
		unprocessed, already, err := svc.FilterUnprocessed(ctx, "site-1", nil)
		require.NoError(t, err)
		assert.Empty(t, unprocessed)
		assert.Empty(t, already)
	})
}
