package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"finance/internal/core"
	applog "finance/internal/log"
)

// DefaultCategories are seeded into an empty database.
var DefaultCategories = []core.Category{
	{Name: "Food", Color: "#ef4444"},
	{Name: "Transport", Color: "#3b82f6"},
	{Name: "Housing", Color: "#10b981"},
	{Name: "Leisure", Color: "#f59e0b"},
	{Name: "Health", Color: "#8b5cf6"},
	{Name: "Salary", Color: "#22c55e"},
}

const categoryColumns = "id, name, color, icon"

func scanCategory(s interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	err := s.Scan(&c.ID, &c.Name, &c.Color, &c.Icon)
	return c, err
}

// ListCategories returns all categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// AddCategory inserts c and returns it with its assigned ID.
func (r *SQLiteRepository) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = r.ensureID(c.ID)
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO categories ("+categoryColumns+") VALUES (?, ?, ?, ?)",
		c.ID, c.Name, c.Color, c.Icon)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// AddCategories inserts all categories in one transaction.
func (r *SQLiteRepository) AddCategories(ctx context.Context, cats []core.Category) error {
	return r.WithTx(ctx, func(tx *SQLiteRepository) error {
		for _, c := range cats {
			if _, err := tx.AddCategory(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateCategory merges patch into the stored category.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id string, patch core.CategoryPatch) (core.Category, error) {
	var updated core.Category
	err := r.WithTx(ctx, func(tx *SQLiteRepository) error {
		current, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		updated = patch.Apply(current)
		if patch.Empty() {
			return nil
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		_, err = tx.q.ExecContext(ctx,
			"UPDATE categories SET name = ?, color = ?, icon = ? WHERE id = ?",
			updated.Name, updated.Color, updated.Icon, id)
		if err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		return nil
	})
	return updated, err
}

// DeleteCategory removes a category. Deletion is refused with
// core.ErrCategoryInUse while a transaction, budget or rule references it.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.WithTx(ctx, func(tx *SQLiteRepository) error {
		if _, err := tx.GetCategory(ctx, id); err != nil {
			return err
		}

		var refs int64
		err := tx.q.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM transactions WHERE category_id = ?)
			     + (SELECT COUNT(*) FROM budgets WHERE category_id = ?)
			     + (SELECT COUNT(*) FROM recurring_rules WHERE category_id = ?)`,
			id, id, id).Scan(&refs)
		if err != nil {
			return fmt.Errorf("count category references: %w", err)
		}
		if refs > 0 {
			return fmt.Errorf("category %s has %d references: %w", id, refs, core.ErrCategoryInUse)
		}

		if _, err := tx.q.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// SeedCategories inserts DefaultCategories when no category exists yet.
func (r *SQLiteRepository) SeedCategories(ctx context.Context) error {
	return r.WithTx(ctx, func(tx *SQLiteRepository) error {
		n, err := tx.CountCategories(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := tx.AddCategories(ctx, DefaultCategories); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		slog.InfoContext(ctx, "Seeded default categories",
			applog.FieldComponent, applog.ComponentStorage, "count", len(DefaultCategories))
		return nil
	})
}
