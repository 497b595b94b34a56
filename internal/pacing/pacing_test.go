package pacing

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestDrawStaysInWindow(t *testing.T) {
	s := New(nil, seeded(), nil, nil)

	for position := 0; position < 12; position++ {
		w := DefaultWindows[min(position, len(DefaultWindows)-1)]
		for i := 0; i < 200; i++ {
			d := s.Draw(position)
			require.GreaterOrEqual(t, d, w.Min, "position %d", position)
			require.Less(t, d, w.Max, "position %d", position)
		}
	}
}

func TestWindowClamps(t *testing.T) {
	s := New(nil, seeded(), nil, nil)

	assert.Equal(t, DefaultWindows[0], s.Window(-3))
	assert.Equal(t, DefaultWindows[6], s.Window(6))
	assert.Equal(t, DefaultWindows[6], s.Window(50))
	assert.Equal(t, Window{15 * time.Minute, 45 * time.Minute}, s.Window(3))
}

func TestZeroWidthWindow(t *testing.T) {
	s := New([]Window{{Min: time.Second, Max: time.Second}}, seeded(), nil, nil)
	assert.Equal(t, time.Second, s.Draw(0))
	assert.Equal(t, time.Second, s.Draw(9))
}

func TestScale(t *testing.T) {
	scaled := Scale(DefaultWindows, 0.001)
	require.Len(t, scaled, len(DefaultWindows))
	assert.Equal(t, 240*time.Millisecond, scaled[0].Max)
	assert.Equal(t, 1200*time.Millisecond, scaled[6].Min)
	assert.Equal(t, 4*time.Minute, DefaultWindows[0].Max, "input is not modified")
}

func TestWait(t *testing.T) {
	var slept []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	t.Run("sleeps the drawn delay", func(t *testing.T) {
		slept = nil
		s := New(nil, seeded(), sleep, nil)
		d, err := s.Wait(context.Background(), 2, 5)
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{d}, slept)
	})

	t.Run("disabled does not sleep", func(t *testing.T) {
		slept = nil
		s := New(nil, seeded(), sleep, nil, WithoutSleep())
		d, err := s.Wait(context.Background(), 1, 5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, d, 5*time.Minute)
		assert.Empty(t, slept)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := New([]Window{{Min: time.Hour, Max: 2 * time.Hour}}, seeded(), nil, nil)
		_, err := s.Wait(ctx, 0, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
