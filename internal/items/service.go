// Package items implements CRUD over the items table, translating storage
// column names (snake_case) to API field names (camelCase) at the boundary.
package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vibestack/internal/models"
)

var (
	ErrNotFound    = errors.New("item not found")
	ErrNameMissing = errors.New("name is required")
)

// Cache is an optional read-through cache for item lookups.
type Cache interface {
	LoadItem(ctx context.Context, id string) (*models.Item, bool)
	StoreItem(ctx context.Context, item *models.Item)
	LoadList(ctx context.Context) ([]models.Item, bool)
	StoreList(ctx context.Context, items []models.Item)
	Invalidate(ctx context.Context, ids ...string)
}

// Service reads and writes items.
type Service struct {
	db    *sql.DB
	cache Cache
}

// NewService builds an item service. cache may be nil.
func NewService(db *sql.DB, cache Cache) *Service {
	return &Service{db: db, cache: cache}
}

const selectColumns = `SELECT id, name, description, image_url, category_id, created_at FROM items`

type row struct {
	id          string
	name        string
	description sql.NullString
	imageURL    sql.NullString
	categoryID  sql.NullString
	createdAt   sql.NullTime
}

func (r row) toItem() models.Item {
	item := models.Item{
		ID:          r.id,
		Name:        r.name,
		Description: nullable(r.description),
		ImageURL:    nullable(r.imageURL),
		CategoryID:  nullable(r.categoryID),
	}
	if r.createdAt.Valid {
		t := r.createdAt.Time.UTC()
		item.CreatedAt = &t
	}
	return item
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (models.Item, error) {
	var r row
	if err := s.Scan(&r.id, &r.name, &r.description, &r.imageURL, &r.categoryID, &r.createdAt); err != nil {
		return models.Item{}, err
	}
	return r.toItem(), nil
}

// List returns all items, newest first.
func (s *Service) List(ctx context.Context) ([]models.Item, error) {
	if s.cache != nil {
		if cached, ok := s.cache.LoadList(ctx); ok {
			return cached, nil
		}
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]models.Item, 0)
	for rows.Next() {
		item, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if s.cache != nil {
		s.cache.StoreList(ctx, items)
	}
	return items, nil
}

// Get returns one item by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	if s.cache != nil {
		if cached, ok := s.cache.LoadItem(ctx, id); ok {
			return cached, nil
		}
	}
	item, err := scanRow(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	if s.cache != nil {
		s.cache.StoreItem(ctx, &item)
	}
	return &item, nil
}

// Create inserts a new item with a generated id.
func (s *Service) Create(ctx context.Context, in models.ItemInput) (*models.Item, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, ErrNameMissing
	}
	now := time.Now().UTC()
	item := models.Item{
		ID:          uuid.NewString(),
		Name:        *in.Name,
		Description: emptyToNil(in.Description),
		ImageURL:    emptyToNil(in.ImageURL),
		CategoryID:  emptyToNil(in.CategoryID),
		CreatedAt:   &now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, name, description, image_url, category_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.ImageURL, item.CategoryID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	return &item, nil
}

// Update applies the non-nil fields of in to the item.
func (s *Service) Update(ctx context.Context, id string, in models.ItemInput) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM items WHERE id = ?)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("verify item: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return ErrNameMissing
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET
			name = COALESCE(?, name),
			description = COALESCE(?, description),
			image_url = COALESCE(?, image_url),
			category_id = COALESCE(?, category_id)
		WHERE id = ?`,
		in.Name, in.Description, in.ImageURL, in.CategoryID, id,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}

func emptyToNil(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
