package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uncodier/API-sub015/internal/dedup"
	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/storage"
	"github.com/Uncodier/API-sub015/internal/storage/memory"
)

// failingMessages 模拟近期消息查询故障的存储。
type failingMessages struct {
	*memory.Store
	queryErr error
}

func (f *failingMessages) RecentMessages(ctx context.Context, q storage.RecentMessagesQuery) ([]domain.Message, error) {
	return nil, f.queryErr
}

func sampleEmail(messageID string, date time.Time) *domain.EmailRecord {
	return &domain.EmailRecord{
		MessageID: messageID,
		From:      "cliente@example.com",
		To:        []string{"hola@uncodie.com"},
		Subject:   "Consulta sobre precios",
		Date:      date,
		Text:      "Hola, quisiera información sobre los planes disponibles.",
	}
}

func TestDedupService_CheckDuplication(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewDedupService(store, dedup.DefaultThresholds(), nil, nil)

	sent := time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	original := sampleEmail("msg-1", sent)
	fp := svc.StableFingerprint(original)

	require.NoError(t, store.SaveMessage(ctx, &domain.Message{
		ID:                  "stored-1",
		SiteID:              "site-1",
		ExternalID:          "msg-1",
		Recipient:           fp.RecipientNormalized,
		SentAt:              sent,
		StableHash:          fp.EnvelopeHash,
		SemanticHash:        fp.SemanticHash,
		RecipientNormalized: fp.RecipientNormalized,
		SubjectNormalized:   fp.SubjectNormalized,
		TimeWindow:          fp.TimeWindow,
	}))

	t.Run("相同消息ID命中精确层", func(t *testing.T) {
		decision, err := svc.CheckDuplication(ctx, sampleEmail("msg-1", sent.Add(2*time.Hour)), "site-1", "", "")
		require.NoError(t, err)
		assert.True(t, decision.IsDuplicate)
		assert.Equal(t, domain.MatchReasonExactID, decision.Reason)
		assert.Equal(t, "stored-1", decision.ExistingID)
	})

	t.Run("不同ID同日同内容命中信封指纹", func(t *testing.T) {
		dup := sampleEmail("msg-2", sent.Add(30*time.Minute))
		decision, err := svc.CheckDuplication(ctx, dup, "site-1", "", "")
		require.NoError(t, err)
		assert.True(t, decision.IsDuplicate)
	})

	t.Run("无关邮件放行", func(t *testing.T) {
		other := &domain.EmailRecord{
			MessageID: "msg-9",
			From:      "otro@example.com",
			To:        []string{"ventas@uncodie.com"},
			Subject:   "Factura pendiente de revisión",
			Date:      sent.Add(80 * time.Hour),
			Text:      "Adjunto encontrará el documento solicitado la semana pasada.",
		}
		decision, err := svc.CheckDuplication(ctx, other, "site-1", "", "")
		require.NoError(t, err)
		assert.False(t, decision.IsDuplicate)
		assert.Equal(t, domain.MatchReasonNone, decision.Reason)
	})
}

func TestDedupService_CheckDuplication_StoreFailure(t *testing.T) {
	queryErr := errors.New("connection refused")
	svc := NewDedupService(&failingMessages{Store: memory.NewStore(), queryErr: queryErr}, dedup.DefaultThresholds(), nil, nil)

	// 存储故障时宽松放行：判定为不重复，同时把错误往上传
	decision, err := svc.CheckDuplication(context.Background(), sampleEmail("msg-1", time.Now().UTC()), "site-1", "", "")
	assert.ErrorIs(t, err, queryErr)
	assert.False(t, decision.IsDuplicate)
	assert.Equal(t, domain.MatchReasonNone, decision.Reason)
}
