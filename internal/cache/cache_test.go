package cache

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentKey(t *testing.T) {
	a := ContentKey([]byte("student_id,question_id\n"))
	b := ContentKey([]byte("student_id,question_id\n"))
	c := ContentKey([]byte("student_id,question_id\r\n"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "gradelens:v1:"))
	assert.Len(t, strings.TrimPrefix(a, "gradelens:v1:"), 64)
}

func TestStore_GetSetDelete(t *testing.T) {
	s := NewStore[*int](time.Minute, time.Minute)
	v := 7

	_, ok := s.Get("k")
	assert.False(t, ok)

	s.Set("k", &v)
	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Same(t, &v, got)
	assert.Equal(t, 1, s.Len())

	s.Delete("k")
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestStore_AddKeepsExisting(t *testing.T) {
	s := NewStore[string](time.Minute, time.Minute)
	assert.True(t, s.Add("k", "first"))
	assert.False(t, s.Add("k", "second"))

	got, _ := s.Get("k")
	assert.Equal(t, "first", got)
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore[string](30*time.Millisecond, time.Hour)
	s.Set("k", "v")

	time.Sleep(60 * time.Millisecond)
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestStore_TouchExtendsExpiry(t *testing.T) {
	s := NewStore[string](80*time.Millisecond, time.Hour)
	s.Set("k", "v")

	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		_, ok := s.Touch("k")
		require.True(t, ok, "touch %d", i)
	}

	_, ok := s.Touch("missing")
	assert.False(t, ok)
}

func TestStore_OnEvicted(t *testing.T) {
	s := NewStore[string](time.Minute, time.Minute)

	var mu sync.Mutex
	var evicted []string
	s.OnEvicted(func(key, value string) {
		mu.Lock()
		defer mu.Unlock()
		evicted = append(evicted, key+"="+value)
	})

	s.Set("a", "1")
	s.Delete("a")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a=1"}, evicted)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore[int](time.Minute, time.Minute)
	s.Set("a", 1)
	s.Set("b", 2)
	s.Clear()
	assert.Equal(t, 0, s.Len())
}
