package smtp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uncodier/API-sub015/internal/dedup"
	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/service"
	"github.com/Uncodier/API-sub015/internal/storage"
	"github.com/Uncodier/API-sub015/internal/storage/memory"
)

func newTestBackend(t *testing.T) (*Backend, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	site := &domain.SiteConfig{
		SiteID:       "site-1",
		EmailAddress: "hola@uncodie.com",
		Aliases:      []string{"ventas@uncodie.com"},
	}
	dedupSvc := service.NewDedupService(store, dedup.DefaultThresholds(), nil, nil)
	tracker := service.NewProcessedObjectService(store, nil, nil)
	ingest := service.NewIngestService(site, dedupSvc, tracker, store, nil, nil)

	// workers 为 nil：测试中摄取同步执行
	return NewBackend(site, ingest, nil, 0, nil, nil), store
}

func TestSession_Rcpt(t *testing.T) {
	backend, _ := newTestBackend(t)

	t.Run("站点主邮箱被接受", func(t *testing.T) {
		s := &session{backend: backend}
		assert.NoError(t, s.Rcpt("<hola@uncodie.com>", nil))
	})

	t.Run("别名被接受", func(t *testing.T) {
		s := &session{backend: backend}
		assert.NoError(t, s.Rcpt("Ventas@Uncodie.com", nil))
	})

	t.Run("外部地址被拒绝", func(t *testing.T) {
		s := &session{backend: backend}
		err := s.Rcpt("<alguien@example.com>", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "relay access denied")
	})

	t.Run("非法地址返回501", func(t *testing.T) {
		s := &session{backend: backend}
		assert.Error(t, s.Rcpt("sin-arroba", nil))
	})
}

func TestSession_Data(t *testing.T) {
	raw := strings.Join([]string{
		"Message-ID: <smtp-msg-1@mail.example.com>",
		"From: cliente@example.com",
		"To: hola@uncodie.com",
		"Subject: Consulta sobre precios",
		"Date: Wed, 20 Aug 2025 10:00:00 +0000",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Hola, quisiera información sobre los planes disponibles.",
	}, "\r\n")

	t.Run("邮件入库并登记台账", func(t *testing.T) {
		backend, store := newTestBackend(t)
		s := &session{backend: backend}
		require.NoError(t, s.Mail("<cliente@example.com>", nil))
		require.NoError(t, s.Rcpt("<hola@uncodie.com>", nil))
		require.NoError(t, s.Data(strings.NewReader(raw)))

		ctx := context.Background()
		msg, err := store.GetMessageByExternalID(ctx, "site-1", "smtp-msg-1@mail.example.com")
		require.NoError(t, err)
		assert.Equal(t, "Consulta sobre precios", msg.Subject)

		rec, err := store.GetProcessedObject(ctx, "site-1", domain.ObjectTypeEmail, "smtp-msg-1@mail.example.com")
		require.NoError(t, err)
		assert.Equal(t, domain.ProcessedStatusProcessed, rec.Status)
	})

	t.Run("同一封邮件重复投递不再入库", func(t *testing.T) {
		backend, store := newTestBackend(t)
		for i := 0; i < 2; i++ {
			s := &session{backend: backend}
			require.NoError(t, s.Mail("<cliente@example.com>", nil))
			require.NoError(t, s.Rcpt("<hola@uncodie.com>", nil))
			require.NoError(t, s.Data(strings.NewReader(raw)))
		}

		msgs, err := store.RecentMessages(context.Background(), storage.RecentMessagesQuery{SiteID: "site-1", Limit: 10})
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})

	t.Run("无法解析的内容报错", func(t *testing.T) {
		backend, _ := newTestBackend(t)
		s := &session{backend: backend}
		require.NoError(t, s.Mail("<cliente@example.com>", nil))
		require.NoError(t, s.Rcpt("<hola@uncodie.com>", nil))
		assert.Error(t, s.Data(strings.NewReader("sin cabeceras")))
	})
}

func TestSession_Reset(t *testing.T) {
	backend, _ := newTestBackend(t)
	s := &session{backend: backend}
	require.NoError(t, s.Mail("<cliente@example.com>", nil))
	require.NoError(t, s.Rcpt("<hola@uncodie.com>", nil))

	s.Reset()
	assert.Empty(t, s.fromAddress)
	assert.Empty(t, s.recipients)
}
