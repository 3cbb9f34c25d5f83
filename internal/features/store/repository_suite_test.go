package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/gamestore-bot/internal/common"
)

// runRepositorySuite проверяет одинаковое поведение всех реализаций Repository.
// newRepo должен возвращать пустое хранилище.
func runRepositorySuite(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	addGame := func(t *testing.T, repo Repository, name string, price int64) int64 {
		t.Helper()
		id, err := repo.AddGame(ctx, name, price, "описание "+name)
		require.NoError(t, err)
		return id
	}
	addUser := func(t *testing.T, repo Repository, id int64) {
		t.Helper()
		_, err := repo.AddUser(ctx, id)
		require.NoError(t, err)
	}

	t.Run("AddUserIsIdempotent", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.AddUser(ctx, 42)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.AddUser(ctx, 42)
		require.NoError(t, err)
		assert.False(t, created)

		exists, err := repo.UserExists(ctx, 42)
		require.NoError(t, err)
		assert.True(t, exists)

		u, err := repo.GetUser(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(StartingBalance), u.Balance)
		assert.Equal(t, StatusIdle, u.Status)
		assert.False(t, u.Admin)
		assert.Nil(t, u.TempName)
		assert.Nil(t, u.TempPrice)
		assert.Nil(t, u.TempDesc)
	})

	t.Run("MissingUser", func(t *testing.T) {
		repo := newRepo(t)

		exists, err := repo.UserExists(ctx, 1)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = repo.GetUser(ctx, 1)
		assert.ErrorIs(t, err, common.ErrNotFound)

		_, err = repo.GetBalance(ctx, 1)
		assert.ErrorIs(t, err, common.ErrNotFound)

		ok, err := repo.AddUserBalance(ctx, 1, 100)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.UpdateUserField(ctx, 1, UserStatus, "x")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("UpdateUserField", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)

		for _, upd := range []struct {
			field UserField
			value any
		}{
			{UserStatus, StatusAwaitGamePrice},
			{UserAdmin, true},
			{UserTempName, "Doom"},
			{UserTempPrice, int64(300)},
			{UserTempDesc, "шутер"},
		} {
			ok, err := repo.UpdateUserField(ctx, 42, upd.field, upd.value)
			require.NoError(t, err, upd.field)
			assert.True(t, ok, upd.field)
		}

		u, err := repo.GetUser(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, StatusAwaitGamePrice, u.Status)
		assert.True(t, u.Admin)
		require.NotNil(t, u.TempName)
		assert.Equal(t, "Doom", *u.TempName)
		require.NotNil(t, u.TempPrice)
		assert.Equal(t, int64(300), *u.TempPrice)
		require.NotNil(t, u.TempDesc)
		assert.Equal(t, "шутер", *u.TempDesc)

		// NULL очищает черновики
		for _, f := range []UserField{UserTempName, UserTempPrice, UserTempDesc} {
			_, err := repo.UpdateUserField(ctx, 42, f, nil)
			require.NoError(t, err)
		}
		u, err = repo.GetUser(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, u.TempName)
		assert.Nil(t, u.TempPrice)
		assert.Nil(t, u.TempDesc)
	})

	t.Run("UpdateUserFieldRejectsUnknownField", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)

		_, err := repo.UpdateUserField(ctx, 42, UserField("balance = 0; --"), 1)
		assert.ErrorIs(t, err, common.ErrUnknownField)

		_, err = repo.UpdateUserField(ctx, 42, UserField("id"), 1)
		assert.ErrorIs(t, err, common.ErrUnknownField)

		_, err = repo.UpdateUserField(ctx, 42, UserStatus, 5)
		assert.Error(t, err)

		_, err = repo.UpdateUserField(ctx, 42, UserBalance, nil)
		assert.Error(t, err)

		balance, err := repo.GetBalance(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(StartingBalance), balance)
	})

	t.Run("AddUserBalanceHasNoSignCheck", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)

		ok, err := repo.AddUserBalance(ctx, 42, 100)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = repo.AddUserBalance(ctx, 42, -700)
		require.NoError(t, err)

		balance, err := repo.GetBalance(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(-100), balance)
	})

	t.Run("ListUsersAndAdmins", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []int64{3, 1, 2} {
			addUser(t, repo, id)
		}
		_, err := repo.UpdateUserField(ctx, 2, UserAdmin, true)
		require.NoError(t, err)

		users, err := repo.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, int64(1), users[0].ID)
		assert.Equal(t, int64(3), users[2].ID)

		admins, err := repo.ListAdminIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, admins)

		n, err := repo.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("AddGameRejectsDuplicateName", func(t *testing.T) {
		repo := newRepo(t)
		id := addGame(t, repo, "Doom", 300)
		assert.Positive(t, id)

		_, err := repo.AddGame(ctx, "Doom", 100, "")
		assert.ErrorIs(t, err, common.ErrAlreadyExists)

		n, err := repo.CountGames(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("GameFields", func(t *testing.T) {
		repo := newRepo(t)
		doom := addGame(t, repo, "Doom", 300)
		quake := addGame(t, repo, "Quake", 400)

		g, err := repo.GetGame(ctx, doom)
		require.NoError(t, err)
		assert.Equal(t, "Doom", g.Name)
		assert.Equal(t, int64(300), g.Price)
		assert.Equal(t, "описание Doom", g.Description)
		assert.True(t, g.Active)

		ok, err := repo.UpdateGameField(ctx, doom, GameStatus, false)
		require.NoError(t, err)
		assert.True(t, ok)
		_, err = repo.UpdateGameField(ctx, quake, GamePrice, int64(450))
		require.NoError(t, err)
		_, err = repo.UpdateGameField(ctx, quake, GameDescription, "арена")
		require.NoError(t, err)

		available, err := repo.ListAvailableGames(ctx)
		require.NoError(t, err)
		require.Len(t, available, 1)
		assert.Equal(t, quake, available[0].ID)
		assert.Equal(t, int64(450), available[0].Price)
		assert.Equal(t, "арена", available[0].Description)

		all, err := repo.ListGames(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.False(t, all[0].Active)

		_, err = repo.UpdateGameField(ctx, doom, GameField("name"), "Doom II")
		assert.ErrorIs(t, err, common.ErrUnknownField)

		ok, err = repo.UpdateGameField(ctx, 9999, GamePrice, int64(1))
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.GetGame(ctx, 9999)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("CartWalkthrough", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)
		var game int64
		for i := 1; i <= 7; i++ {
			game = addGame(t, repo, fmt.Sprintf("Игра %d", i), int64(i*100))
		}

		cart, err := repo.GetCart(ctx, 42)
		require.NoError(t, err)
		assert.Empty(t, cart)

		require.NoError(t, repo.AddToCart(ctx, 42, game))
		cart, err = repo.GetCart(ctx, 42)
		require.NoError(t, err)
		require.Len(t, cart, 1)
		assert.Equal(t, 1, cart[0].Count)
		assert.Equal(t, game, cart[0].GameID)
		assert.Equal(t, "Игра 7", cart[0].Name)
		row := cart[0].OrderID

		require.NoError(t, repo.AddToCart(ctx, 42, game))
		cart, err = repo.GetCart(ctx, 42)
		require.NoError(t, err)
		require.Len(t, cart, 1)
		assert.Equal(t, row, cart[0].OrderID)
		assert.Equal(t, 2, cart[0].Count)
		assert.Equal(t, int64(1400), cart[0].Subtotal())

		ok, err := repo.UpdateCartItem(ctx, row, 42, -1)
		require.NoError(t, err)
		assert.True(t, ok)
		cart, err = repo.GetCart(ctx, 42)
		require.NoError(t, err)
		require.Len(t, cart, 1)
		assert.Equal(t, 1, cart[0].Count)

		ok, err = repo.UpdateCartItem(ctx, row, 42, -1)
		require.NoError(t, err)
		assert.True(t, ok)
		cart, err = repo.GetCart(ctx, 42)
		require.NoError(t, err)
		assert.Empty(t, cart)
	})

	t.Run("UpdateCartItemDeltas", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)
		game := addGame(t, repo, "Doom", 300)
		require.NoError(t, repo.AddToCart(ctx, 42, game))
		cart, err := repo.GetCart(ctx, 42)
		require.NoError(t, err)
		row := cart[0].OrderID

		ok, err := repo.UpdateCartItem(ctx, row, 42, 3)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.UpdateCartItem(ctx, row, 42, 0)
		require.NoError(t, err)
		assert.True(t, ok)

		cart, err = repo.GetCart(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, 4, cart[0].Count)

		// Итог <= 0 не сохраняется: строка удаляется
		ok, err = repo.UpdateCartItem(ctx, row, 42, -10)
		require.NoError(t, err)
		assert.True(t, ok)
		cart, err = repo.GetCart(ctx, 42)
		require.NoError(t, err)
		assert.Empty(t, cart)

		ok, err = repo.UpdateCartItem(ctx, row, 42, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ForeignRowsAreUntouched", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)
		addUser(t, repo, 43)
		game := addGame(t, repo, "Doom", 300)
		require.NoError(t, repo.AddToCart(ctx, 43, game))
		cart, err := repo.GetCart(ctx, 43)
		require.NoError(t, err)
		row := cart[0].OrderID

		ok, err := repo.UpdateCartItem(ctx, row, 42, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.RemoveFromCart(ctx, row, 42)
		require.NoError(t, err)
		assert.False(t, ok)

		cart, err = repo.GetCart(ctx, 43)
		require.NoError(t, err)
		require.Len(t, cart, 1)
		assert.Equal(t, 1, cart[0].Count)

		ok, err = repo.RemoveFromCart(ctx, row, 43)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.RemoveFromCart(ctx, row, 43)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("AddToCartUnknownGame", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)
		assert.Error(t, repo.AddToCart(ctx, 42, 9999))
	})

	t.Run("CheckoutEmptyCart", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)

		ok, err := repo.Checkout(ctx, 42, time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("CheckoutSharesTimestamp", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)
		doom := addGame(t, repo, "Doom", 300)
		quake := addGame(t, repo, "Quake", 400)
		require.NoError(t, repo.AddToCart(ctx, 42, doom))
		require.NoError(t, repo.AddToCart(ctx, 42, quake))
		require.NoError(t, repo.AddToCart(ctx, 42, quake))
		cart, err := repo.GetCart(ctx, 42)
		require.NoError(t, err)
		require.Len(t, cart, 2)

		at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
		ok, err := repo.Checkout(ctx, 42, at)
		require.NoError(t, err)
		assert.True(t, ok)

		after, err := repo.GetCart(ctx, 42)
		require.NoError(t, err)
		assert.Empty(t, after)

		history, err := repo.GetOrderHistory(ctx, 42, 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		for _, l := range history {
			require.NotNil(t, l.Date)
			assert.True(t, at.Equal(*l.Date), "date %v", *l.Date)
		}

		// Оформленные строки неизменяемы
		ok, err = repo.UpdateCartItem(ctx, cart[0].OrderID, 42, 1)
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = repo.RemoveFromCart(ctx, cart[0].OrderID, 42)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.Checkout(ctx, 42, at.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, ok)

		// Повторное добавление создаёт новую строку корзины
		require.NoError(t, repo.AddToCart(ctx, 42, doom))
		fresh, err := repo.GetCart(ctx, 42)
		require.NoError(t, err)
		require.Len(t, fresh, 1)
		assert.NotEqual(t, cart[0].OrderID, fresh[0].OrderID)
		assert.Equal(t, 1, fresh[0].Count)
	})

	t.Run("OrderHistoryNewestFirst", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)
		doom := addGame(t, repo, "Doom", 300)
		quake := addGame(t, repo, "Quake", 400)
		base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

		require.NoError(t, repo.AddToCart(ctx, 42, doom))
		_, err := repo.Checkout(ctx, 42, base)
		require.NoError(t, err)
		require.NoError(t, repo.AddToCart(ctx, 42, quake))
		_, err = repo.Checkout(ctx, 42, base.Add(24*time.Hour))
		require.NoError(t, err)

		history, err := repo.GetOrderHistory(ctx, 42, 1)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "Quake", history[0].Name)
	})

	t.Run("TotalSalesCountsCheckedOutOnly", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)
		addUser(t, repo, 43)
		doom := addGame(t, repo, "Doom", 300)
		quake := addGame(t, repo, "Quake", 400)

		total, err := repo.TotalSales(ctx)
		require.NoError(t, err)
		assert.Zero(t, total)

		require.NoError(t, repo.AddToCart(ctx, 42, doom))
		require.NoError(t, repo.AddToCart(ctx, 42, doom))
		_, err = repo.Checkout(ctx, 42, time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.AddToCart(ctx, 43, quake))

		total, err = repo.TotalSales(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(600), total)
	})

	t.Run("AddFailedOrder", func(t *testing.T) {
		repo := newRepo(t)
		addUser(t, repo, 42)

		require.NoError(t, repo.AddFailedOrder(ctx, 42, "Doom x1; сумма 300; баланс 0"))
		assert.Error(t, repo.AddFailedOrder(ctx, 9999, "нет такого пользователя"))
	})
}
