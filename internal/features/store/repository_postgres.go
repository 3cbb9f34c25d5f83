// Package store — repository_postgres.go: хранилище магазина в PostgreSQL (pgx).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/gamestore-bot/internal/common"
)

// pgUniqueViolation — SQLSTATE нарушения уникальности.
const pgUniqueViolation = "23505"

// PostgresRepository реализует Repository поверх пула pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository создаёт репозиторий магазина для PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ Repository = (*PostgresRepository)(nil)

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// ============================================================================
// Пользователи
// ============================================================================

// AddUser создаёт пользователя. false — пользователь уже был.
func (r *PostgresRepository) AddUser(ctx context.Context, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки пользователя: %w", err)
	}
	return exists, nil
}

// GetUser возвращает строку пользователя или common.ErrNotFound.
func (r *PostgresRepository) GetUser(ctx context.Context, userID int64) (*User, error) {
	query := `
		SELECT id, balance, status, admin, temp_name, temp_price, temp_desc
		FROM users WHERE id = $1
	`
	var u User
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.Balance, &u.Status, &u.Admin, &u.TempName, &u.TempPrice, &u.TempDesc,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return &u, nil
}

// UpdateUserField меняет одно из разрешённых полей. false — пользователя нет.
func (r *PostgresRepository) UpdateUserField(ctx context.Context, userID int64, field UserField, value any) (bool, error) {
	column, v, err := userColumn(field, value)
	if err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`UPDATE users SET %s = $1 WHERE id = $2`, column), v, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка обновления users.%s: %w", column, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// AddUserBalance прибавляет amount к балансу. Знак не проверяется:
// отрицательная сумма списывает средства.
func (r *PostgresRepository) AddUserBalance(ctx context.Context, userID int64, amount int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE users SET balance = balance + $1 WHERE id = $2`, amount, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка изменения баланса: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, balance, status, admin, temp_name, temp_price, temp_desc
		FROM users ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователей: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Balance, &u.Status, &u.Admin, &u.TempName, &u.TempPrice, &u.TempDesc); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (r *PostgresRepository) ListAdminIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM users WHERE admin ORDER BY id`)
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

func (r *PostgresRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return n, nil
}

// ============================================================================
// Игры
// ============================================================================

// AddGame добавляет активную игру и возвращает её ID.
// Повтор названия — common.ErrAlreadyExists.
func (r *PostgresRepository) AddGame(ctx context.Context, name string, price int64, description string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO games (name, price, description, status)
		VALUES ($1, $2, $3, 1)
		RETURNING id
	`, name, price, description).Scan(&id)
	if isPgUniqueViolation(err) {
		return 0, fmt.Errorf("игра %q: %w", name, common.ErrAlreadyExists)
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка добавления игры: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) GetGame(ctx context.Context, gameID int64) (*Game, error) {
	var (
		g      Game
		status int16
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, price, description, status FROM games WHERE id = $1
	`, gameID).Scan(&g.ID, &g.Name, &g.Price, &g.Description, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения игры: %w", err)
	}
	g.Active = status == 1
	return &g, nil
}

func (r *PostgresRepository) ListAvailableGames(ctx context.Context) ([]*Game, error) {
	return r.listGames(ctx, `SELECT id, name, price, description, status FROM games WHERE status = 1 ORDER BY id`)
}

// ListGames возвращает все игры, включая снятые с продажи.
func (r *PostgresRepository) ListGames(ctx context.Context) ([]*Game, error) {
	return r.listGames(ctx, `SELECT id, name, price, description, status FROM games ORDER BY id`)
}

func (r *PostgresRepository) listGames(ctx context.Context, query string) ([]*Game, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения игр: %w", err)
	}
	defer rows.Close()

	var games []*Game
	for rows.Next() {
		var (
			g      Game
			status int16
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Price, &g.Description, &status); err != nil {
			return nil, fmt.Errorf("ошибка сканирования игры: %w", err)
		}
		g.Active = status == 1
		games = append(games, &g)
	}
	return games, rows.Err()
}

func (r *PostgresRepository) UpdateGameField(ctx context.Context, gameID int64, field GameField, value any) (bool, error) {
	column, v, err := gameColumn(field, value)
	if err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`UPDATE games SET %s = $1 WHERE id = $2`, column), v, gameID)
	if err != nil {
		return false, fmt.Errorf("ошибка обновления games.%s: %w", column, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) CountGames(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта игр: %w", err)
	}
	return n, nil
}

// ============================================================================
// Корзина и заказы
// ============================================================================

// AddToCart увеличивает count существующей строки корзины или создаёт новую с count = 1.
func (r *PostgresRepository) AddToCart(ctx context.Context, userID, gameID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM orders
		WHERE user_id = $1 AND game_id = $2 AND status = 0
		ORDER BY id LIMIT 1
		FOR UPDATE
	`, userID, gameID).Scan(&orderID)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx, `
			INSERT INTO orders (user_id, game_id, count, status) VALUES ($1, $2, 1, 0)
		`, userID, gameID)
		if err != nil {
			return fmt.Errorf("ошибка добавления в корзину: %w", err)
		}
	case err != nil:
		return fmt.Errorf("ошибка поиска строки корзины: %w", err)
	default:
		if _, err = tx.Exec(ctx, `UPDATE orders SET count = count + 1 WHERE id = $1`, orderID); err != nil {
			return fmt.Errorf("ошибка увеличения количества: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// GetCart возвращает строки корзины вместе с данными игр.
func (r *PostgresRepository) GetCart(ctx context.Context, userID int64) ([]*OrderLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, g.id, g.name, g.price, o.count, g.description
		FROM orders o
		JOIN games g ON g.id = o.game_id
		WHERE o.user_id = $1 AND o.status = 0
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

// UpdateCartItem прибавляет delta к count строки корзины.
// Если count становится <= 0, строка удаляется.
// false — строки нет, она чужая или уже оформлена.
func (r *PostgresRepository) UpdateCartItem(ctx context.Context, orderID, userID int64, delta int) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	err = tx.QueryRow(ctx, `
		SELECT count FROM orders
		WHERE id = $1 AND user_id = $2 AND status = 0
		FOR UPDATE
	`, orderID, userID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка поиска строки корзины: %w", err)
	}
	if delta == 0 {
		return true, nil
	}

	if next := count + delta; next <= 0 {
		_, err = tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	} else {
		_, err = tx.Exec(ctx, `UPDATE orders SET count = $1 WHERE id = $2`, next, orderID)
	}
	if err != nil {
		return false, fmt.Errorf("ошибка изменения строки корзины: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return true, nil
}

// RemoveFromCart удаляет строку корзины пользователя.
func (r *PostgresRepository) RemoveFromCart(ctx context.Context, orderID, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM orders WHERE id = $1 AND user_id = $2 AND status = 0
	`, orderID, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка удаления из корзины: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Checkout переводит всю корзину в заказы одним UPDATE, поэтому дата у всех строк общая.
func (r *PostgresRepository) Checkout(ctx context.Context, userID int64, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = 1, date = $1
		WHERE user_id = $2 AND status = 0
	`, at.UTC(), userID)
	if err != nil {
		return false, fmt.Errorf("ошибка оформления заказа: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetOrderHistory возвращает последние оформленные заказы, новые первыми.
func (r *PostgresRepository) GetOrderHistory(ctx context.Context, userID int64, limit int) ([]*OrderLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, g.id, g.name, g.price, o.count, g.description, o.date
		FROM orders o
		JOIN games g ON g.id = o.game_id
		WHERE o.user_id = $1 AND o.status = 1
		ORDER BY o.date DESC, o.id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории заказов: %w", err)
	}
	defer rows.Close()

	var lines []*OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.OrderID, &l.GameID, &l.Name, &l.Price, &l.Count, &l.Description, &l.Date); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заказа: %w", err)
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// TotalSales — сумма price × count по всем оформленным заказам.
func (r *PostgresRepository) TotalSales(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(g.price * o.count), 0)::BIGINT
		FROM orders o
		JOIN games g ON g.id = o.game_id
		WHERE o.status = 1
	`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта продаж: %w", err)
	}
	return total, nil
}

// AddFailedOrder пишет запись в журнал неудачных заказов.
func (r *PostgresRepository) AddFailedOrder(ctx context.Context, userID int64, details string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO failed_orders (user_id, order_details) VALUES ($1, $2)
	`, userID, details)
	if err != nil {
		return fmt.Errorf("ошибка записи неудачного заказа: %w", err)
	}
	return nil
}
