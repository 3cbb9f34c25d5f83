// Package store — repository_sqlite.go: хранилище магазина в одном файле SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"serotonyl.ru/gamestore-bot/internal/common"
)

// sqliteDateLayout — формат дат в TEXT-колонках.
const sqliteDateLayout = "2006-01-02 15:04:05"

// SQLiteRepository реализует Repository поверх database/sql и modernc.org/sqlite.
// Ожидает *sql.DB, открытый через db/sqlite.Open (одно соединение, foreign_keys=on).
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

var _ Repository = (*SQLiteRepository)(nil)

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func parseSQLiteDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(sqliteDateLayout, s.String, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("некорректная дата %q: %w", s.String, err)
	}
	return &t, nil
}

func sqliteBool(b bool) int {
	if b {
		return 1
	}
	return 0
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ============================================================================
// Пользователи
// ============================================================================

func (r *SQLiteRepository) AddUser(ctx context.Context, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLiteRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки пользователя: %w", err)
	}
	return exists, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, userID int64) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, balance, status, admin, temp_name, temp_price, temp_desc
		FROM users WHERE id = ?
	`, userID)
	u, err := scanSQLiteUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row rowScanner) (*User, error) {
	var (
		u     User
		name  sql.NullString
		price sql.NullInt64
		desc  sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Balance, &u.Status, &u.Admin, &name, &price, &desc); err != nil {
		return nil, err
	}
	if name.Valid {
		u.TempName = &name.String
	}
	if price.Valid {
		u.TempPrice = &price.Int64
	}
	if desc.Valid {
		u.TempDesc = &desc.String
	}
	return &u, nil
}

func (r *SQLiteRepository) UpdateUserField(ctx context.Context, userID int64, field UserField, value any) (bool, error) {
	column, v, err := userColumn(field, value)
	if err != nil {
		return false, err
	}
	// admin хранится как INTEGER 0/1
	if b, ok := v.(bool); ok {
		v = sqliteBool(b)
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE users SET %s = ? WHERE id = ?`, column), v, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка обновления users.%s: %w", column, err)
	}
	return rowsAffected(res)
}

func (r *SQLiteRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

func (r *SQLiteRepository) AddUserBalance(ctx context.Context, userID int64, amount int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET balance = balance + ? WHERE id = ?`, amount, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка изменения баланса: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, balance, status, admin, temp_name, temp_price, temp_desc
		FROM users ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователей: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) ListAdminIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE admin = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения админов: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования админа: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return n, nil
}

// ============================================================================
// Игры
// ============================================================================

func (r *SQLiteRepository) AddGame(ctx context.Context, name string, price int64, description string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO games (name, price, description, status) VALUES (?, ?, ?, 1)
	`, name, price, description)
	if isSQLiteUniqueViolation(err) {
		return 0, fmt.Errorf("игра %q: %w", name, common.ErrAlreadyExists)
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка добавления игры: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка получения ID игры: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetGame(ctx context.Context, gameID int64) (*Game, error) {
	var (
		g      Game
		status int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price, description, status FROM games WHERE id = ?
	`, gameID).Scan(&g.ID, &g.Name, &g.Price, &g.Description, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения игры: %w", err)
	}
	g.Active = status == 1
	return &g, nil
}

func (r *SQLiteRepository) ListAvailableGames(ctx context.Context) ([]*Game, error) {
	return r.listGames(ctx, `SELECT id, name, price, description, status FROM games WHERE status = 1 ORDER BY id`)
}

func (r *SQLiteRepository) ListGames(ctx context.Context) ([]*Game, error) {
	return r.listGames(ctx, `SELECT id, name, price, description, status FROM games ORDER BY id`)
}

func (r *SQLiteRepository) listGames(ctx context.Context, query string) ([]*Game, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения игр: %w", err)
	}
	defer rows.Close()

	var games []*Game
	for rows.Next() {
		var (
			g      Game
			status int
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Price, &g.Description, &status); err != nil {
			return nil, fmt.Errorf("ошибка сканирования игры: %w", err)
		}
		g.Active = status == 1
		games = append(games, &g)
	}
	return games, rows.Err()
}

func (r *SQLiteRepository) UpdateGameField(ctx context.Context, gameID int64, field GameField, value any) (bool, error) {
	column, v, err := gameColumn(field, value)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE games SET %s = ? WHERE id = ?`, column), v, gameID)
	if err != nil {
		return false, fmt.Errorf("ошибка обновления games.%s: %w", column, err)
	}
	return rowsAffected(res)
}

func (r *SQLiteRepository) CountGames(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта игр: %w", err)
	}
	return n, nil
}

// ============================================================================
// Корзина и заказы
// ============================================================================

// AddToCart увеличивает count существующей строки корзины или создаёт новую.
// Все запросы внутри идут через tx: у базы одно соединение.
func (r *SQLiteRepository) AddToCart(ctx context.Context, userID, gameID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	var orderID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM orders
		WHERE user_id = ? AND game_id = ? AND status = 0
		ORDER BY id LIMIT 1
	`, userID, gameID).Scan(&orderID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders (user_id, game_id, count, status) VALUES (?, ?, 1, 0)
		`, userID, gameID)
		if err != nil {
			return fmt.Errorf("ошибка добавления в корзину: %w", err)
		}
	case err != nil:
		return fmt.Errorf("ошибка поиска строки корзины: %w", err)
	default:
		if _, err = tx.ExecContext(ctx, `UPDATE orders SET count = count + 1 WHERE id = ?`, orderID); err != nil {
			return fmt.Errorf("ошибка увеличения количества: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCart(ctx context.Context, userID int64) ([]*OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, g.id, g.name, g.price, o.count, g.description
		FROM orders o
		JOIN games g ON g.id = o.game_id
		WHERE o.user_id = ? AND o.status = 0
		ORDER BY o.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения корзины: %w", err)
	}
	defer rows.Close()

	var lines []*OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.OrderID, &l.GameID, &l.Name, &l.Price, &l.Count, &l.Description); err != nil {
			return nil, fmt.Errorf("ошибка сканирования корзины: %w", err)
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

func (r *SQLiteRepository) UpdateCartItem(ctx context.Context, orderID, userID int64, delta int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT count FROM orders WHERE id = ? AND user_id = ? AND status = 0
	`, orderID, userID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка поиска строки корзины: %w", err)
	}
	if delta == 0 {
		return true, nil
	}

	if next := count + delta; next <= 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE orders SET count = ? WHERE id = ?`, next, orderID)
	}
	if err != nil {
		return false, fmt.Errorf("ошибка изменения строки корзины: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) RemoveFromCart(ctx context.Context, orderID, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM orders WHERE id = ? AND user_id = ? AND status = 0
	`, orderID, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка удаления из корзины: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLiteRepository) Checkout(ctx context.Context, userID int64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = 1, date = ? WHERE user_id = ? AND status = 0
	`, at.UTC().Format(sqliteDateLayout), userID)
	if err != nil {
		return false, fmt.Errorf("ошибка оформления заказа: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLiteRepository) GetOrderHistory(ctx context.Context, userID int64, limit int) ([]*OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, g.id, g.name, g.price, o.count, g.description, o.date
		FROM orders o
		JOIN games g ON g.id = o.game_id
		WHERE o.user_id = ? AND o.status = 1
		ORDER BY o.date DESC, o.id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории заказов: %w", err)
	}
	defer rows.Close()

	var lines []*OrderLine
	for rows.Next() {
		var (
			l    OrderLine
			date sql.NullString
		)
		if err := rows.Scan(&l.OrderID, &l.GameID, &l.Name, &l.Price, &l.Count, &l.Description, &date); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заказа: %w", err)
		}
		if l.Date, err = parseSQLiteDate(date); err != nil {
			return nil, err
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

func (r *SQLiteRepository) TotalSales(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(g.price * o.count), 0)
		FROM orders o
		JOIN games g ON g.id = o.game_id
		WHERE o.status = 1
	`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта продаж: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) AddFailedOrder(ctx context.Context, userID int64, details string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO failed_orders (user_id, order_details) VALUES (?, ?)
	`, userID, details)
	if err != nil {
		return fmt.Errorf("ошибка записи неудачного заказа: %w", err)
	}
	return nil
}
