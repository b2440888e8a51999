package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPebbleRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenPebble(dir)
	require.NoError(t, err)

	_, ok := s.Get("token")
	require.False(t, ok)

	require.NoError(t, s.Set("token", []byte("abc.def.ghi")))
	val, ok := s.Get("token")
	require.True(t, ok)
	require.Equal(t, []byte("abc.def.ghi"), val)

	require.NoError(t, s.Remove("token"))
	_, ok = s.Get("token")
	require.False(t, ok)

	// Removing an absent key is fine.
	require.NoError(t, s.Remove("token"))
	require.NoError(t, s.Close())
}

func TestPebbleSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenPebble(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("loggedIn", []byte("true")))
	require.NoError(t, s.Close())

	s, err = OpenPebble(dir)
	require.NoError(t, err)
	defer s.Close()
	val, ok := s.Get("loggedIn")
	require.True(t, ok)
	require.Equal(t, []byte("true"), val)
}

func TestOpenPebbleEmptyDir(t *testing.T) {
	_, err := OpenPebble("")
	require.Error(t, err)
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	_, ok := s.Get("k")
	require.False(t, ok)

	require.NoError(t, s.Set("k", []byte("v")))
	val, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), val)

	// Returned slice is a copy.
	val[0] = 'x'
	val2, _ := s.Get("k")
	require.Equal(t, []byte("v"), val2)

	require.NoError(t, s.Remove("k"))
	_, ok = s.Get("k")
	require.False(t, ok)
	require.NoError(t, s.Close())
}
