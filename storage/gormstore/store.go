package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mengeric/batchgen-go/rowstore"
)

// rowModel 映射到数据库表。Input/Output 以 JSON 存储。
type rowModel struct {
	ID         uint      `gorm:"primaryKey"`
	Key        string    `gorm:"uniqueIndex;column:row_key"`
	Collection string    `gorm:"index"`
	Status     int       `gorm:"index"`
	Input      string    `gorm:"type:text"`
	Output     string    `gorm:"type:text"`
	Error      string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Store 基于 GORM 的行存储实现。
// 调用方应自行在外部执行 AutoMigrate(&rowModel{}, &snapshotModel{})，
// 可经 Models 获取模型列表。
type Store struct{ db *gorm.DB }

// New 创建 Store。
func New(db *gorm.DB) *Store { return &Store{db: db} }

// Models 返回需要迁移的模型列表。
func Models() []any { return []any{&rowModel{}, &snapshotModel{}} }

// Put 实现 rowstore.Store.Put。
func (s *Store) Put(ctx context.Context, rec *rowstore.Record) error {
	m := toModel(rec)
	return s.db.WithContext(ctx).Where("row_key = ?", rec.Key).Assign(m).FirstOrCreate(&m).Error
}

// Get 实现 rowstore.Store.Get。
func (s *Store) Get(ctx context.Context, key string) (*rowstore.Record, error) {
	var m rowModel
	if err := s.db.WithContext(ctx).Where("row_key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rowstore.ErrNotFound
		}
		return nil, err
	}
	return fromModel(m), nil
}

// Select 实现 rowstore.Store.Select。谓词为 Go 函数，在内存中过滤。
func (s *Store) Select(ctx context.Context, pred func(rowstore.Record) bool) ([]rowstore.Record, error) {
	var list []rowModel
	if err := s.db.WithContext(ctx).Find(&list).Error; err != nil {
		return nil, err
	}
	out := make([]rowstore.Record, 0, len(list))
	for _, m := range list {
		r := fromModel(m)
		if pred == nil || pred(*r) {
			out = append(out, *r)
		}
	}
	return out, nil
}

// UpsertStatus 实现 rowstore.Store.UpsertStatus。
// 状态约束由 rowstore.Apply 统一维护：读出、应用、写回。
func (s *Store) UpsertStatus(ctx context.Context, p rowstore.Patch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyOne(tx, p)
	})
}

// BulkApply 实现 rowstore.Store.BulkApply：单事务应用一批变更。
func (s *Store) BulkApply(ctx context.Context, patches []rowstore.Patch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range patches {
			if err := applyOne(tx, p); err != nil && !errors.Is(err, rowstore.ErrNotFound) {
				return err
			}
		}
		return nil
	})
}

// List 实现 rowstore.Store.List。
func (s *Store) List(ctx context.Context) ([]rowstore.Record, error) {
	return s.Select(ctx, nil)
}

func applyOne(tx *gorm.DB, p rowstore.Patch) error {
	var m rowModel
	if err := tx.Where("row_key = ?", p.Key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rowstore.ErrNotFound
		}
		return err
	}
	rec := fromModel(m)
	if !rowstore.Apply(rec, p) {
		return nil
	}
	nm := toModel(rec)
	nm.ID = m.ID
	return tx.Save(&nm).Error
}

func toModel(r *rowstore.Record) rowModel {
	return rowModel{
		Key:        r.Key,
		Collection: r.Collection,
		Status:     r.Status,
		Input:      marshalFields(r.Input),
		Output:     marshalFields(r.Output),
		Error:      r.Error,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func fromModel(m rowModel) *rowstore.Record {
	return &rowstore.Record{
		Key:        m.Key,
		Collection: m.Collection,
		Status:     m.Status,
		Input:      unmarshalFields(m.Input),
		Output:     unmarshalFields(m.Output),
		Error:      m.Error,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func marshalFields(m map[string]string) string {
	if m == nil {
		return ""
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func unmarshalFields(s string) map[string]string {
	if s == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}
