package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Uncodier/API-sub015/internal/domain"
)

func textEmail(text string) *domain.EmailRecord {
	return &domain.EmailRecord{Text: text}
}

func TestSemanticHash(t *testing.T) {
	t.Run("格式带标签", func(t *testing.T) {
		h := SemanticHash(textEmail("informacion importante sobre precios disponibles"))
		assert.True(t, strings.HasPrefix(h, "sem-"))
	})

	t.Run("段落顺序不影响结果", func(t *testing.T) {
		a := SemanticHash(textEmail("primera parte importante.\n\nsegunda parte adicional."))
		b := SemanticHash(textEmail("segunda parte adicional.\n\nprimera parte importante."))
		assert.Equal(t, a, b)
	})

	t.Run("内容差异改变结果", func(t *testing.T) {
		a := SemanticHash(textEmail("necesito informacion sobre precios"))
		b := SemanticHash(textEmail("necesito informacion sobre horarios"))
		assert.NotEqual(t, a, b)
	})

	t.Run("重音折叠", func(t *testing.T) {
		a := SemanticHash(textEmail("información atención recepción"))
		b := SemanticHash(textEmail("informacion atencion recepcion"))
		assert.Equal(t, a, b)
	})

	t.Run("停用词和问候语不参与", func(t *testing.T) {
		a := SemanticHash(textEmail("Hola, necesito el presupuesto actualizado. Gracias, saludos"))
		b := SemanticHash(textEmail("necesito presupuesto actualizado"))
		assert.Equal(t, a, b)
	})

	t.Run("短词和纯数字丢弃", func(t *testing.T) {
		a := SemanticHash(textEmail("presupuesto de 12345 el al producto"))
		b := SemanticHash(textEmail("presupuesto producto"))
		assert.Equal(t, a, b)
	})

	t.Run("HTML剥离后与纯文本一致", func(t *testing.T) {
		html := &domain.EmailRecord{
			HTML: `<html><head><style>p{color:red}</style></head>` +
				`<body><script>alert(1)</script><p>necesito <b>presupuesto</b> actualizado</p></body></html>`,
		}
		assert.Equal(t, SemanticHash(textEmail("necesito presupuesto actualizado")), SemanticHash(html))
	})

	t.Run("纯文本优先于HTML", func(t *testing.T) {
		email := &domain.EmailRecord{
			Text: "contenido textual principal",
			HTML: "<p>otro contenido distinto completamente</p>",
		}
		assert.Equal(t, SemanticHash(textEmail("contenido textual principal")), SemanticHash(email))
	})

	t.Run("空正文返回空", func(t *testing.T) {
		assert.Equal(t, "", SemanticHash(textEmail("")))
		assert.Equal(t, "", SemanticHash(nil))
	})

	t.Run("只剩停用词返回空", func(t *testing.T) {
		assert.Equal(t, "", SemanticHash(textEmail("hola gracias saludos el la de")))
	})

	t.Run("自定义停用词表", func(t *testing.T) {
		opts := DefaultSemanticOptions()
		opts.StopWords = buildStopWords("bonjour", "merci")
		a := SemanticHashWithOptions(textEmail("bonjour voici le devis merci"), opts)
		b := SemanticHashWithOptions(textEmail("voici le devis"), opts)
		assert.Equal(t, a, b)
	})

	t.Run("关键词数量受上限约束", func(t *testing.T) {
		opts := DefaultSemanticOptions()
		opts.MaxTokens = 3
		// 排序后只保留前三个词，后续词不再影响结果
		a := SemanticHashWithOptions(textEmail("aaa bbb ccc ddd"), opts)
		b := SemanticHashWithOptions(textEmail("aaa bbb ccc eee"), opts)
		assert.Equal(t, a, b)
	})
}
