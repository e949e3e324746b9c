package model

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtOffsetUsesWallClock(t *testing.T) {
	ams, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	spring := NewDate(2025, time.March, 30)
	got := spring.AtOffset(8*time.Hour, ams)
	assert.True(t, time.Date(2025, 3, 30, 8, 0, 0, 0, ams).Equal(got), got.String())
	assert.Equal(t, 8.0, WallHours(got, ams))

	autumn := NewDate(2025, time.October, 26)
	got = autumn.At(MustTimeOfDay("17:30"), ams)
	assert.Equal(t, 17, got.Hour())
	assert.Equal(t, 30, got.Minute())
	assert.Equal(t, 17.5, WallHours(got, ams))
}

func TestWallHoursConvertsLocation(t *testing.T) {
	ams, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)
	utc := time.Date(2025, 3, 30, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, 10.0, WallHours(utc, ams))
	assert.Equal(t, 8.0, WallHours(utc, nil))
}
