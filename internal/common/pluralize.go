// Package common — pluralize.go содержит вспомогательные функции
// форматирования чисел для сообщений бота.
package common

import (
	"fmt"
	"strconv"
)

// FormatAmount создаёт строку вида "+100 монет" или "-50 монет".
// Знак «+» или «-» добавляется автоматически.
//
// Примеры:
//
//	FormatAmount(100)  → "+100 монет"
//	FormatAmount(-50)  → "-50 монет"
//	FormatAmount(1)    → "+1 монета"
func FormatAmount(amount int64) string {
	if amount >= 0 {
		return "+" + FormatBalance(amount)
	}
	return FormatBalance(amount)
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		// -(n+1)+1 не переполняется и для math.MinInt64
		return "-" + formatUnsigned(uint64(-(n+1))+1)
	}
	return formatUnsigned(uint64(n))
}

func formatUnsigned(u uint64) string {
	if u < 1000 {
		return strconv.FormatUint(u, 10)
	}

	// Рекурсивно добавляем разделители
	return fmt.Sprintf("%s %03d", formatUnsigned(u/1000), u%1000)
}
