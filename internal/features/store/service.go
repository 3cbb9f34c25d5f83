// Package store — service.go содержит бизнес-логику магазина.
// Сервис — граница, за которой ошибки хранилища не выходят наружу:
// он пишет их в лог и отдаёт обработчикам bool / nil / ноль.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gamestore-bot/internal/common"
	"serotonyl.ru/gamestore-bot/internal/config"
)

// DefaultHistoryLimit — сколько заказов показывает /orders.
const DefaultHistoryLimit = 10

// Service управляет магазином.
type Service struct {
	repo Repository
	cfg  *config.Config
	now  func() time.Time
}

// NewService создаёт сервис магазина.
func NewService(repo Repository, cfg *config.Config) *Service {
	return &Service{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}
}

// logRepoError пишет ошибку хранилища с контекстом операции.
func logRepoError(err error, op string, fields log.Fields) {
	entry := log.WithError(err).WithField("op", op)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Error("Ошибка хранилища магазина")
}

// ============================================================================
// Пользователи
// ============================================================================

// EnsureUser создаёт пользователя при первом обращении.
// Пользователь из ADMIN_IDS получает флаг администратора.
func (s *Service) EnsureUser(ctx context.Context, userID int64) bool {
	created, err := s.repo.AddUser(ctx, userID)
	if err != nil {
		logRepoError(err, "ensure_user", log.Fields{"user_id": userID})
		return false
	}
	if created {
		log.WithField("user_id", userID).Info("Новый покупатель")
		if s.cfg != nil && s.cfg.IsAdminID(userID) {
			s.SetAdmin(ctx, userID, true)
		}
	}
	return true
}

// BootstrapAdmins создаёт пользователей из ADMIN_IDS и выставляет им флаг админа.
// Вызывается при старте.
func (s *Service) BootstrapAdmins(ctx context.Context) int {
	if s.cfg == nil {
		return 0
	}
	n := 0
	for _, id := range s.cfg.AdminIDs {
		if !s.EnsureUser(ctx, id) {
			continue
		}
		if s.SetAdmin(ctx, id, true) {
			n++
		}
	}
	return n
}

func (s *Service) UserExists(ctx context.Context, userID int64) bool {
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		logRepoError(err, "user_exists", log.Fields{"user_id": userID})
		return false
	}
	return ok
}

// GetUser возвращает пользователя или nil, если его нет (или БД недоступна).
func (s *Service) GetUser(ctx context.Context, userID int64) *User {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			logRepoError(err, "get_user", log.Fields{"user_id": userID})
		}
		return nil
	}
	return u
}

// IsAdmin сообщает, стоит ли у пользователя флаг администратора.
func (s *Service) IsAdmin(ctx context.Context, userID int64) bool {
	u := s.GetUser(ctx, userID)
	return u != nil && u.Admin
}

// GetBalance возвращает баланс. ok=false — пользователя нет.
func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, bool) {
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			logRepoError(err, "get_balance", log.Fields{"user_id": userID})
		}
		return 0, false
	}
	return balance, true
}

// AddUserBalance прибавляет amount (может быть отрицательным).
func (s *Service) AddUserBalance(ctx context.Context, userID int64, amount int64) bool {
	ok, err := s.repo.AddUserBalance(ctx, userID, amount)
	if err != nil {
		logRepoError(err, "add_user_balance", log.Fields{"user_id": userID, "amount": amount})
		return false
	}
	return ok
}

func (s *Service) updateUser(ctx context.Context, userID int64, field UserField, value any) bool {
	ok, err := s.repo.UpdateUserField(ctx, userID, field, value)
	if err != nil {
		logRepoError(err, "update_user_field", log.Fields{"user_id": userID, "field": field})
		return false
	}
	return ok
}

func (s *Service) SetStatus(ctx context.Context, userID int64, status string) bool {
	return s.updateUser(ctx, userID, UserStatus, status)
}

func (s *Service) SetAdmin(ctx context.Context, userID int64, admin bool) bool {
	return s.updateUser(ctx, userID, UserAdmin, admin)
}

func (s *Service) SetTempName(ctx context.Context, userID int64, name string) bool {
	return s.updateUser(ctx, userID, UserTempName, name)
}

func (s *Service) SetTempPrice(ctx context.Context, userID int64, price int64) bool {
	return s.updateUser(ctx, userID, UserTempPrice, price)
}

func (s *Service) SetTempDesc(ctx context.Context, userID int64, desc string) bool {
	return s.updateUser(ctx, userID, UserTempDesc, desc)
}

// ClearTemp обнуляет черновики админ-диалога.
func (s *Service) ClearTemp(ctx context.Context, userID int64) bool {
	ok := s.updateUser(ctx, userID, UserTempName, nil)
	ok = s.updateUser(ctx, userID, UserTempPrice, nil) && ok
	ok = s.updateUser(ctx, userID, UserTempDesc, nil) && ok
	return ok
}

func (s *Service) ListUsers(ctx context.Context) []*User {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		logRepoError(err, "list_users", nil)
		return nil
	}
	return users
}

// AdminIDs объединяет админов из БД и из ADMIN_IDS без повторов.
func (s *Service) AdminIDs(ctx context.Context) []int64 {
	ids, err := s.repo.ListAdminIDs(ctx)
	if err != nil {
		logRepoError(err, "list_admin_ids", nil)
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if s.cfg != nil {
		for _, id := range s.cfg.AdminIDs {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// ============================================================================
// Игры
// ============================================================================

// AddGame добавляет игру в каталог.
// Возвращает common.ErrAlreadyExists, если название занято.
func (s *Service) AddGame(ctx context.Context, name string, price int64, description string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, common.ErrInvalidInput
	}
	if price <= 0 {
		return 0, common.ErrInvalidAmount
	}
	id, err := s.repo.AddGame(ctx, name, price, strings.TrimSpace(description))
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return 0, common.ErrAlreadyExists
		}
		logRepoError(err, "add_game", log.Fields{"name": name})
		return 0, err
	}
	log.WithFields(log.Fields{"game_id": id, "name": name, "price": price}).Info("Игра добавлена")
	return id, nil
}

// GetGame возвращает игру или nil.
func (s *Service) GetGame(ctx context.Context, gameID int64) *Game {
	g, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			logRepoError(err, "get_game", log.Fields{"game_id": gameID})
		}
		return nil
	}
	return g
}

func (s *Service) ListAvailableGames(ctx context.Context) []*Game {
	games, err := s.repo.ListAvailableGames(ctx)
	if err != nil {
		logRepoError(err, "list_available_games", nil)
		return nil
	}
	return games
}

func (s *Service) ListGames(ctx context.Context) []*Game {
	games, err := s.repo.ListGames(ctx)
	if err != nil {
		logRepoError(err, "list_games", nil)
		return nil
	}
	return games
}

func (s *Service) updateGame(ctx context.Context, gameID int64, field GameField, value any) bool {
	ok, err := s.repo.UpdateGameField(ctx, gameID, field, value)
	if err != nil {
		logRepoError(err, "update_game_field", log.Fields{"game_id": gameID, "field": field})
		return false
	}
	return ok
}

func (s *Service) SetGamePrice(ctx context.Context, gameID int64, price int64) bool {
	if price <= 0 {
		return false
	}
	return s.updateGame(ctx, gameID, GamePrice, price)
}

func (s *Service) SetGameDescription(ctx context.Context, gameID int64, desc string) bool {
	return s.updateGame(ctx, gameID, GameDescription, strings.TrimSpace(desc))
}

// SetGameActive включает или снимает игру с продажи.
func (s *Service) SetGameActive(ctx context.Context, gameID int64, active bool) bool {
	return s.updateGame(ctx, gameID, GameStatus, active)
}

// ============================================================================
// Корзина
// ============================================================================

// AddToCart кладёт игру в корзину. Снятые с продажи игры не добавляются.
func (s *Service) AddToCart(ctx context.Context, userID, gameID int64) error {
	g := s.GetGame(ctx, gameID)
	if g == nil || !g.Active {
		return common.ErrGameUnavailable
	}
	if err := s.repo.AddToCart(ctx, userID, gameID); err != nil {
		logRepoError(err, "add_to_cart", log.Fields{"user_id": userID, "game_id": gameID})
		return err
	}
	return nil
}

func (s *Service) GetCart(ctx context.Context, userID int64) []*OrderLine {
	lines, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		logRepoError(err, "get_cart", log.Fields{"user_id": userID})
		return nil
	}
	return lines
}

// UpdateCartItem меняет количество. false — строки нет или она не принадлежит пользователю.
func (s *Service) UpdateCartItem(ctx context.Context, orderID, userID int64, delta int) bool {
	ok, err := s.repo.UpdateCartItem(ctx, orderID, userID, delta)
	if err != nil {
		logRepoError(err, "update_cart_item", log.Fields{"user_id": userID, "order_id": orderID, "delta": delta})
		return false
	}
	return ok
}

func (s *Service) RemoveFromCart(ctx context.Context, orderID, userID int64) bool {
	ok, err := s.repo.RemoveFromCart(ctx, orderID, userID)
	if err != nil {
		logRepoError(err, "remove_from_cart", log.Fields{"user_id": userID, "order_id": orderID})
		return false
	}
	return ok
}

// Checkout переводит корзину в заказы без списания баланса.
func (s *Service) Checkout(ctx context.Context, userID int64) bool {
	ok, err := s.repo.Checkout(ctx, userID, s.now().UTC().Truncate(time.Second))
	if err != nil {
		logRepoError(err, "checkout", log.Fields{"user_id": userID})
		return false
	}
	return ok
}

// Purchase списывает стоимость корзины и оформляет её.
//
// Порядок:
//  1. Пустая корзина — common.ErrEmptyCart.
//  2. В корзине есть снятые с продажи игры: они удаляются из корзины,
//     возвращается common.ErrGameUnavailable, деньги не списываются.
//  3. Баланса не хватает — запись в failed_orders и common.ErrInsufficientBalance.
//  4. Иначе AddUserBalance(-total), затем Checkout. Это два отдельных вызова
//     без общей транзакции.
func (s *Service) Purchase(ctx context.Context, userID int64) (*Receipt, error) {
	lines, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		logRepoError(err, "purchase_get_cart", log.Fields{"user_id": userID})
		return nil, common.ErrCheckoutFailed
	}
	if len(lines) == 0 {
		return nil, common.ErrEmptyCart
	}

	removed, err := s.dropUnavailable(ctx, userID, lines)
	if err != nil {
		return nil, common.ErrCheckoutFailed
	}
	if removed > 0 {
		log.WithFields(log.Fields{"user_id": userID, "removed": removed}).
			Info("Покупка остановлена: игры сняты с продажи")
		return nil, common.ErrGameUnavailable
	}

	total := CartTotal(lines)
	balance, ok := s.GetBalance(ctx, userID)
	if !ok {
		return nil, common.ErrCheckoutFailed
	}

	if balance < total {
		s.RecordFailedOrder(ctx, userID, describeFailedOrder(lines, total, balance))
		log.WithFields(log.Fields{
			"user_id": userID,
			"total":   total,
			"balance": balance,
		}).Info("Покупка отклонена: не хватает средств")
		return nil, common.ErrInsufficientBalance
	}

	if !s.AddUserBalance(ctx, userID, -total) {
		return nil, common.ErrCheckoutFailed
	}

	at := s.now().UTC().Truncate(time.Second)
	checkedOut, err := s.repo.Checkout(ctx, userID, at)
	if err != nil || !checkedOut {
		if err != nil {
			logRepoError(err, "purchase_checkout", log.Fields{"user_id": userID})
		}
		log.WithFields(log.Fields{"user_id": userID, "total": total}).
			Warn("Баланс списан, но корзина не оформлена")
		return nil, common.ErrCheckoutFailed
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"total":   total,
		"items":   len(lines),
	}).Info("Заказ оформлен")

	return &Receipt{
		Lines:      lines,
		Total:      total,
		NewBalance: balance - total,
		At:         at,
	}, nil
}

// dropUnavailable удаляет из корзины строки с неактивными или удалёнными играми.
func (s *Service) dropUnavailable(ctx context.Context, userID int64, lines []*OrderLine) (int, error) {
	removed := 0
	for _, l := range lines {
		game, err := s.repo.GetGame(ctx, l.GameID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			logRepoError(err, "purchase_get_game", log.Fields{"user_id": userID, "game_id": l.GameID})
			return removed, err
		}
		if game != nil && game.Active {
			continue
		}
		if _, err := s.repo.RemoveFromCart(ctx, l.OrderID, userID); err != nil {
			logRepoError(err, "purchase_remove_unavailable", log.Fields{"user_id": userID, "order_id": l.OrderID})
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// describeFailedOrder формирует текст для журнала failed_orders.
func describeFailedOrder(lines []*OrderLine, total, balance int64) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s x%d", l.Name, l.Count))
	}
	return fmt.Sprintf("%s; сумма %d; баланс %d", strings.Join(parts, ", "), total, balance)
}

// RecordFailedOrder пишет запись в журнал неудачных заказов.
func (s *Service) RecordFailedOrder(ctx context.Context, userID int64, details string) bool {
	if err := s.repo.AddFailedOrder(ctx, userID, details); err != nil {
		logRepoError(err, "add_failed_order", log.Fields{"user_id": userID})
		return false
	}
	return true
}

// OrderHistory возвращает последние оформленные заказы пользователя.
func (s *Service) OrderHistory(ctx context.Context, userID int64, limit int) []*OrderLine {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	lines, err := s.repo.GetOrderHistory(ctx, userID, limit)
	if err != nil {
		logRepoError(err, "order_history", log.Fields{"user_id": userID})
		return nil
	}
	return lines
}

// Stats собирает сводку магазина.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	games, err := s.repo.CountGames(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.TotalSales(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Users: users, Games: games, Sales: sales}, nil
}
