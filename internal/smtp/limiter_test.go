package smtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionLimiter(t *testing.T) {
	t.Run("并发连接数受限", func(t *testing.T) {
		l := NewConnectionLimiter(2, 100)

		assert.True(t, l.Acquire())
		assert.True(t, l.Acquire())
		assert.False(t, l.Acquire())
		assert.Equal(t, 2, l.Current())

		l.Release()
		assert.Equal(t, 1, l.Current())
		assert.True(t, l.Acquire())
	})

	t.Run("新建连接速率受限", func(t *testing.T) {
		l := NewConnectionLimiter(100, 2)

		assert.True(t, l.Acquire())
		assert.True(t, l.Acquire())
		// 令牌桶耗尽，瞬时第三个连接被拒
		assert.False(t, l.Acquire())
	})

	t.Run("Release不会把计数减成负数", func(t *testing.T) {
		l := NewConnectionLimiter(2, 100)
		l.Release()
		assert.Equal(t, 0, l.Current())
	})
}
