package fingerprint

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Uncodier/API-sub015/internal/domain"
)

func testEmail(subject string, date time.Time) *domain.EmailRecord {
	return &domain.EmailRecord{
		From:    "sender@x.com",
		To:      []string{"hola@uncodie.com"},
		Subject: subject,
		Date:    date,
	}
}

func TestEnvelopeID(t *testing.T) {
	base := time.Date(2025, 8, 29, 22, 10, 0, 0, time.UTC)

	t.Run("格式带标签和日期后缀", func(t *testing.T) {
		id := EnvelopeID(testEmail("Info", base))
		assert.True(t, strings.HasPrefix(id, "env-"))
		assert.True(t, strings.HasSuffix(id, "-20250829"))
	})

	t.Run("同一天不同分钟结果一致", func(t *testing.T) {
		a := EnvelopeID(testEmail("Info", base))
		b := EnvelopeID(testEmail("Info", base.Add(37*time.Minute)))
		assert.Equal(t, a, b)
	})

	t.Run("回复前缀和大小写不影响结果", func(t *testing.T) {
		a := EnvelopeID(testEmail("Info", base))
		b := EnvelopeID(testEmail("Re: INFO", base))
		assert.Equal(t, a, b)
	})

	t.Run("隔天结果不同", func(t *testing.T) {
		a := EnvelopeID(testEmail("Info", base))
		b := EnvelopeID(testEmail("Info", base.Add(25*time.Hour)))
		assert.NotEqual(t, a, b)
	})

	t.Run("缺少日期返回空", func(t *testing.T) {
		assert.Equal(t, "", EnvelopeID(testEmail("Info", time.Time{})))
	})

	t.Run("缺少收件人返回空", func(t *testing.T) {
		email := testEmail("Info", base)
		email.To = nil
		assert.Equal(t, "", EnvelopeID(email))
	})

	t.Run("收件人无可用地址返回空", func(t *testing.T) {
		email := testEmail("Info", base)
		email.To = []string{"Just A Name"}
		assert.Equal(t, "", EnvelopeID(email))
	})

	t.Run("缺少主题返回空", func(t *testing.T) {
		assert.Equal(t, "", EnvelopeID(testEmail("", base)))
	})

	t.Run("nil输入返回空", func(t *testing.T) {
		assert.Equal(t, "", EnvelopeID(nil))
	})
}

func TestGenerate(t *testing.T) {
	base := time.Date(2025, 8, 29, 22, 10, 0, 0, time.UTC)

	t.Run("完整邮件生成全部字段", func(t *testing.T) {
		email := testEmail("Re: Info Sobre Precios", base)
		email.Text = "Necesito informacion sobre los precios del producto"

		fp := Generate(email)
		assert.Equal(t, "hola@uncodie.com", fp.RecipientNormalized)
		assert.Equal(t, "info sobre precios", fp.SubjectNormalized)
		assert.Equal(t, "2025-08-29", fp.TimeWindow)
		assert.NotEmpty(t, fp.EnvelopeHash)
		assert.NotEmpty(t, fp.SemanticHash)
	})

	t.Run("缺失字段独立降级", func(t *testing.T) {
		email := testEmail("Info", time.Time{})
		fp := Generate(email)
		assert.Empty(t, fp.EnvelopeHash)
		assert.Empty(t, fp.TimeWindow)
		assert.Equal(t, "info", fp.SubjectNormalized)
	})
}
