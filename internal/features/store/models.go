// Package store реализует магазин игр: каталог, корзину, оформление и баланс.
// models.go описывает структуры для таблиц users, games, orders и failed_orders.
package store

import "time"

// StartingBalance — баланс нового пользователя (DEFAULT в схеме users).
const StartingBalance = 500

// MaxGiveAmount — предел суммы одного /give в обе стороны.
const MaxGiveAmount = 1_000_000_000

// User — покупатель. Создаётся при первом обращении к боту и никогда не удаляется.
type User struct {
	ID        int64   `db:"id"`         // Telegram user ID
	Balance   int64   `db:"balance"`    // Текущий баланс
	Status    string  `db:"status"`     // Шаг админ-диалога (пусто — диалога нет)
	Admin     bool    `db:"admin"`      // Флаг администратора
	TempName  *string `db:"temp_name"`  // Черновик названия игры
	TempPrice *int64  `db:"temp_price"` // Черновик цены
	TempDesc  *string `db:"temp_desc"`  // Черновик описания
}

// Game — позиция каталога. Не удаляется: снимается с продажи через Active=false.
type Game struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Price       int64  `db:"price"`
	Description string `db:"description"`
	Active      bool   `db:"status"`
}

// OrderStatus — состояние строки orders.
type OrderStatus int

const (
	OrderInCart     OrderStatus = 0 // Строка корзины
	OrderCheckedOut OrderStatus = 1 // Оформленный заказ (неизменяем)
)

// OrderLine — строка orders вместе с данными игры.
// Для корзины Date всегда nil, для оформленных заказов — время оформления.
type OrderLine struct {
	OrderID     int64
	GameID      int64
	Name        string
	Price       int64
	Count       int
	Description string
	Date        *time.Time
}

// Subtotal возвращает стоимость строки: цена × количество.
func (l *OrderLine) Subtotal() int64 {
	return l.Price * int64(l.Count)
}

// CartTotal суммирует стоимость всех строк.
func CartTotal(lines []*OrderLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// Stats — сводка магазина для админов.
type Stats struct {
	Users int64 // Всего пользователей
	Games int64 // Всего игр (включая снятые с продажи)
	Sales int64 // Сумма оформленных заказов
}

// Receipt — результат успешной покупки.
type Receipt struct {
	Lines      []*OrderLine
	Total      int64
	NewBalance int64
	At         time.Time
}
