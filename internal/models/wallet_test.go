package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWallet_RolloverCounters(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	t.Run("same day keeps counters", func(t *testing.T) {
		w := Wallet{
			WithdrawalsToday:     3,
			WithdrawalsThisMonth: 10,
			CounterDate:          day(2026, time.September, 1),
		}
		changed := w.RolloverCounters(day(2026, time.September, 1).Add(13 * time.Hour))
		assert.False(t, changed)
		assert.Equal(t, 3, w.WithdrawalsToday)
		assert.Equal(t, 10, w.WithdrawalsThisMonth)
	})

	t.Run("new day resets daily only", func(t *testing.T) {
		w := Wallet{
			WithdrawalsToday:     3,
			WithdrawalsThisMonth: 10,
			CounterDate:          day(2026, time.September, 1),
		}
		changed := w.RolloverCounters(day(2026, time.September, 2))
		assert.True(t, changed)
		assert.Equal(t, 0, w.WithdrawalsToday)
		assert.Equal(t, 10, w.WithdrawalsThisMonth)
		assert.True(t, w.CounterDate.Equal(day(2026, time.September, 2)))
	})

	t.Run("new month resets both", func(t *testing.T) {
		w := Wallet{
			WithdrawalsToday:     3,
			WithdrawalsThisMonth: 10,
			CounterDate:          day(2026, time.August, 31),
		}
		changed := w.RolloverCounters(day(2026, time.September, 1))
		assert.True(t, changed)
		assert.Equal(t, 0, w.WithdrawalsToday)
		assert.Equal(t, 0, w.WithdrawalsThisMonth)
	})

	t.Run("new year resets both", func(t *testing.T) {
		w := Wallet{
			WithdrawalsToday:     1,
			WithdrawalsThisMonth: 5,
			CounterDate:          day(2025, time.December, 31),
		}
		changed := w.RolloverCounters(day(2026, time.January, 1))
		assert.True(t, changed)
		assert.Equal(t, 0, w.WithdrawalsToday)
		assert.Equal(t, 0, w.WithdrawalsThisMonth)
	})
}
