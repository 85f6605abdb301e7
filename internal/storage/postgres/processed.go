package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/storage"
)

// Ledger 是处理台账的 pgx 直连实现。批量过滤和幂等插入是高频路径，
// 直接走连接池和 ON CONFLICT 比经过 ORM 少一次往返。
type Ledger struct {
	client *Client
}

// NewLedger 创建台账访问器
func NewLedger(client *Client) *Ledger {
	return &Ledger{client: client}
}

// InsertProcessedObject 幂等插入台账记录。已存在的业务键返回
// storage.ErrProcessedObjectExists，不覆盖原记录。
func (l *Ledger) InsertProcessedObject(ctx context.Context, record *domain.ProcessedObject) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	tag, err := l.client.pool.Exec(ctx, `
		INSERT INTO processed_objects (id, site_id, object_type, external_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (site_id, object_type, external_id) DO NOTHING`,
		record.ID, record.SiteID, record.ObjectType, record.ExternalID, record.Status, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrProcessedObjectExists
	}
	return nil
}

// GetProcessedObject 根据业务键获取台账记录
func (l *Ledger) GetProcessedObject(ctx context.Context, siteID, objectType, externalID string) (*domain.ProcessedObject, error) {
	var record domain.ProcessedObject
	err := l.client.pool.QueryRow(ctx, `
		SELECT id, site_id, object_type, external_id, status, created_at, updated_at
		FROM processed_objects
		WHERE site_id = $1 AND object_type = $2 AND external_id = $3`,
		siteID, objectType, externalID,
	).Scan(&record.ID, &record.SiteID, &record.ObjectType, &record.ExternalID, &record.Status, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrProcessedObjectNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListProcessedObjects 批量查询一组外部ID中已有台账记录的部分
func (l *Ledger) ListProcessedObjects(ctx context.Context, siteID, objectType string, externalIDs []string) ([]domain.ProcessedObject, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	rows, err := l.client.pool.Query(ctx, `
		SELECT id, site_id, object_type, external_id, status, created_at, updated_at
		FROM processed_objects
		WHERE site_id = $1 AND object_type = $2 AND external_id = ANY($3)`,
		siteID, objectType, externalIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ProcessedObject
	for rows.Next() {
		var record domain.ProcessedObject
		if err := rows.Scan(&record.ID, &record.SiteID, &record.ObjectType, &record.ExternalID, &record.Status, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// UpdateProcessedObjectStatus 更新台账记录状态
func (l *Ledger) UpdateProcessedObjectStatus(ctx context.Context, id string, status domain.ProcessedObjectStatus) error {
	tag, err := l.client.pool.Exec(ctx, `
		UPDATE processed_objects SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrProcessedObjectNotFound
	}
	return nil
}
