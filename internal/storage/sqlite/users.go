package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/storage"
)

const userColumns = `id, username, email, password_hash, phone_number, upi_id, photo_url,
	is_verified, budget, theme, mode, style_preset, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.PhoneNumber,
		&user.UPIID,
		&user.PhotoURL,
		&user.IsVerified,
		&user.Budget,
		&user.Theme,
		&user.Mode,
		&user.StylePreset,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.PhoneNumber, user.UPIID,
		user.PhotoURL, user.IsVerified, user.Budget, user.Theme, string(user.Mode), user.StylePreset,
		user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Username, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := insertCategories(ctx, tx, user.ID, user.Categories); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their ID, including categories.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	if user.Categories, err = s.getCategories(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByLogin retrieves a user by username or email, including categories.
// Email matching is case-insensitive.
func (s *SQLiteStore) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR lower(email) = lower(?)`,
		login, login,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", login)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by login: %w", err)
	}

	if user.Categories, err = s.getCategories(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUsersByIDs retrieves multiple users by their IDs.
// Users that don't exist are omitted from the result. Categories are not loaded.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UpdateUser replaces the stored profile and category list.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, password_hash = ?, phone_number = ?, upi_id = ?,
		 photo_url = ?, is_verified = ?, budget = ?, theme = ?, mode = ?, style_preset = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username, user.Email, user.PasswordHash, user.PhoneNumber, user.UPIID,
		user.PhotoURL, user.IsVerified, user.Budget, user.Theme, string(user.Mode), user.StylePreset,
		user.UpdatedAt, user.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Username, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("user", user.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_categories WHERE user_id = ?", user.ID); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}
	if err := insertCategories(ctx, tx, user.ID, user.Categories); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SearchUsers finds users whose username or email contains query,
// ordered by username.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.ToLower(query) + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE lower(username) LIKE ? OR lower(email) LIKE ?
		 ORDER BY username LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func insertCategories(ctx context.Context, tx *sql.Tx, userID string, categories []models.Category) error {
	for i, c := range categories {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_categories (user_id, position, name) VALUES (?, ?, ?)",
			userID, i, c.Name,
		); err != nil {
			return fmt.Errorf("failed to insert category: %w", err)
		}
		for j, sub := range c.Subcategories {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_subcategories (user_id, category_position, position, name)
				 VALUES (?, ?, ?, ?)`,
				userID, i, j, sub,
			); err != nil {
				return fmt.Errorf("failed to insert subcategory: %w", err)
			}
		}
	}
	return nil
}

func (s *SQLiteStore) getCategories(ctx context.Context, userID string) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.position, c.name, s.name
		 FROM user_categories c
		 LEFT JOIN user_subcategories s
		   ON s.user_id = c.user_id AND s.category_position = c.position
		 WHERE c.user_id = ?
		 ORDER BY c.position, s.position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	last := -1
	for rows.Next() {
		var (
			pos  int
			name string
			sub  sql.NullString
		)
		if err := rows.Scan(&pos, &name, &sub); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if pos != last {
			categories = append(categories, models.Category{Name: name, Subcategories: []string{}})
			last = pos
		}
		if sub.Valid {
			c := &categories[len(categories)-1]
			c.Subcategories = append(c.Subcategories, sub.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}
