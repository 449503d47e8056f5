package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeClock_AfterFiresOnAdvance(t *testing.T) {
	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	c := Fake(start)

	ch := c.After(time.Minute)
	require.Equal(t, 1, c.Waiters())

	c.Advance(30 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired before deadline")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case fired := <-ch:
		require.Equal(t, start.Add(time.Minute), fired)
	default:
		t.Fatal("did not fire at deadline")
	}
	require.Equal(t, 0, c.Waiters())
}

func TestFakeClock_AfterNonPositive(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	select {
	case <-c.After(0):
	default:
		t.Fatal("zero duration should fire immediately")
	}
	require.Equal(t, 0, c.Waiters())
}

func TestFakeClock_SetDoesNotFire(t *testing.T) {
	start := time.Unix(100, 0)
	c := Fake(start)
	ch := c.After(time.Second)

	c.Set(start.Add(time.Hour))
	require.Equal(t, start.Add(time.Hour), c.Now())
	select {
	case <-ch:
		t.Fatal("Set must not fire waiters")
	default:
	}
}

func TestFakeClock_StoppedTimerIsNotPending(t *testing.T) {
	start := time.Unix(100, 0)
	c := Fake(start)

	abandoned := c.NewTimer(time.Minute)
	kept := c.NewTimer(time.Minute)
	require.Equal(t, 2, c.Waiters())

	require.True(t, abandoned.Stop())
	require.False(t, abandoned.Stop())
	require.Equal(t, 1, c.Waiters())

	c.Advance(time.Minute)
	select {
	case <-abandoned.C():
		t.Fatal("stopped timer fired")
	default:
	}
	select {
	case fired := <-kept.C():
		require.Equal(t, start.Add(time.Minute), fired)
	default:
		t.Fatal("timer did not fire")
	}
	require.False(t, kept.Stop())
}
