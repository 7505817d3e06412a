package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"trichmind.app/backend/internal/dates"
	"trichmind.app/backend/internal/store"
)

func checkIn(day string, relapsed bool) store.DailyCheckIn {
	return store.DailyCheckIn{DayKey: day, Relapsed: relapsed}
}

func TestComputeStreaks_Empty(t *testing.T) {
	stats := ComputeStreaks(nil)

	require.Equal(t, 0, stats.CurrentStreak)
	require.Equal(t, 0, stats.PreviousStreak)
	require.Equal(t, 0, stats.LongestStreak)
	require.Equal(t, 0, stats.RelapseCount)
	require.Nil(t, stats.LastEntryDate)
	require.Nil(t, stats.LastRelapseDate)
	require.Empty(t, stats.RecentWindow)
}

func TestComputeStreaks_SingleRecord(t *testing.T) {
	stats := ComputeStreaks([]store.DailyCheckIn{checkIn("2024-01-01", false)})

	require.Equal(t, 1, stats.CurrentStreak)
	require.Equal(t, 1, stats.LongestStreak)
	require.Equal(t, 0, stats.PreviousStreak)
	require.Equal(t, 0, stats.RelapseCount)
	require.NotNil(t, stats.LastEntryDate)
	require.Equal(t, "2024-01-01", *stats.LastEntryDate)
	require.Nil(t, stats.LastRelapseDate)
}

func TestComputeStreaks_RelapseBreaksRun(t *testing.T) {
	stats := ComputeStreaks([]store.DailyCheckIn{
		checkIn("2024-01-01", false),
		checkIn("2024-01-02", false),
		checkIn("2024-01-03", true),
		checkIn("2024-01-04", false),
	})

	require.Equal(t, 1, stats.CurrentStreak)
	require.Equal(t, 2, stats.LongestStreak)
	require.Equal(t, 2, stats.PreviousStreak)
	require.Equal(t, 1, stats.RelapseCount)
	require.NotNil(t, stats.LastRelapseDate)
	require.Equal(t, "2024-01-03", *stats.LastRelapseDate)
}

func TestComputeStreaks_GapResetsRun(t *testing.T) {
	// Missing 2024-01-02: the calendar gap resets the run even though no
	// relapse was recorded.
	stats := ComputeStreaks([]store.DailyCheckIn{
		checkIn("2024-01-01", false),
		checkIn("2024-01-03", false),
	})

	require.Equal(t, 1, stats.LongestStreak)
	require.Equal(t, 1, stats.CurrentStreak)
	require.Equal(t, 0, stats.RelapseCount)
}

func TestComputeStreaks_AllRelapsed(t *testing.T) {
	stats := ComputeStreaks([]store.DailyCheckIn{
		checkIn("2024-01-01", true),
		checkIn("2024-01-02", true),
		checkIn("2024-01-03", true),
	})

	require.Equal(t, 0, stats.CurrentStreak)
	require.Equal(t, 0, stats.PreviousStreak)
	require.Equal(t, 0, stats.LongestStreak)
	require.Equal(t, 3, stats.RelapseCount)
	require.Equal(t, "2024-01-03", *stats.LastRelapseDate)
}

func TestComputeStreaks_CurrentZeroWhenLastRelapsed(t *testing.T) {
	stats := ComputeStreaks([]store.DailyCheckIn{
		checkIn("2024-01-01", false),
		checkIn("2024-01-02", false),
		checkIn("2024-01-03", true),
	})

	require.Equal(t, 0, stats.CurrentStreak)
	require.Equal(t, 2, stats.PreviousStreak)
	require.Equal(t, 2, stats.LongestStreak)
}

func TestComputeStreaks_RelapseAsFirstRecord(t *testing.T) {
	stats := ComputeStreaks([]store.DailyCheckIn{
		checkIn("2024-01-01", true),
		checkIn("2024-01-02", false),
		checkIn("2024-01-03", false),
	})

	require.Equal(t, 0, stats.PreviousStreak)
	require.Equal(t, 2, stats.CurrentStreak)
	require.Equal(t, 2, stats.LongestStreak)
	require.Equal(t, 1, stats.RelapseCount)
}

func TestComputeStreaks_LongestNotAtEnd(t *testing.T) {
	stats := ComputeStreaks([]store.DailyCheckIn{
		checkIn("2024-01-01", false),
		checkIn("2024-01-02", false),
		checkIn("2024-01-03", false),
		checkIn("2024-01-04", true),
		checkIn("2024-01-05", false),
	})

	require.Equal(t, 3, stats.LongestStreak)
	require.Equal(t, 1, stats.CurrentStreak)
	require.Equal(t, 3, stats.PreviousStreak)
}

func TestComputeStreaks_RecentWindowBounded(t *testing.T) {
	var checkIns []store.DailyCheckIn
	day := "2024-01-01"
	for i := 0; i < 20; i++ {
		checkIns = append(checkIns, checkIn(day, false))
		next, err := dates.AddDays(day, 1)
		require.NoError(t, err)
		day = next
	}

	stats := ComputeStreaks(checkIns)

	require.Len(t, stats.RecentWindow, 14)
	require.Equal(t, "2024-01-07", stats.RecentWindow[0].DayKey)
	require.Equal(t, "2024-01-20", stats.RecentWindow[len(stats.RecentWindow)-1].DayKey)
	require.Equal(t, 20, stats.CurrentStreak)
	require.Equal(t, 20, stats.LongestStreak)
}

func TestComputeStreaks_Deterministic(t *testing.T) {
	checkIns := []store.DailyCheckIn{
		checkIn("2024-01-01", false),
		checkIn("2024-01-02", true),
		checkIn("2024-01-05", false),
		checkIn("2024-01-06", false),
	}

	first := ComputeStreaks(checkIns)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, ComputeStreaks(checkIns))
	}
}
