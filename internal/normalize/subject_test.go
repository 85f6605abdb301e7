package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	t.Run("剥离回复转发前缀", func(t *testing.T) {
		assert.Equal(t, "hello world", Subject("Re: Hello World"))
		assert.Equal(t, "hello world", Subject("RE: re: Fwd: Hello World"))
		assert.Equal(t, "hello world", Subject("FW:Hello   World"))
	})

	t.Run("折叠空白并小写", func(t *testing.T) {
		assert.Equal(t, "info sobre precios", Subject("  Info   Sobre\tPrecios "))
	})

	t.Run("截断到固定前缀", func(t *testing.T) {
		long := strings.Repeat("palabra ", 20)
		got := Subject(long)
		assert.LessOrEqual(t, len([]rune(got)), SubjectPrefixLength)
	})

	t.Run("幂等性", func(t *testing.T) {
		for _, in := range []string{"Re: Fwd: Something Long Enough", "", "simple"} {
			once := Subject(in)
			assert.Equal(t, once, Subject(once))
		}
	})

	t.Run("不同前缀归一到同一主题", func(t *testing.T) {
		assert.Equal(t, Subject("Info"), Subject("Re: INFO"))
	})
}
