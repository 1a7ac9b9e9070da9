package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortable(t *testing.T) {
	a := New()
	b := New()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}

func TestAtEncodesTime(t *testing.T) {
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	u, err := ulid.ParseStrict(At(ts))
	require.NoError(t, err)
	assert.True(t, ulid.Time(u.Time()).Equal(ts))
	assert.Less(t, At(ts), At(ts.Add(time.Millisecond)))
}
