package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Uncodier/API-sub015/internal/domain"
)

func testSite() *domain.SiteConfig {
	return &domain.SiteConfig{
		SiteID:       "site-1",
		EmailAddress: "hola@uncodie.com",
		Aliases:      []string{"info@uncodie.com"},
		Domain:       "https://www.uncodie.com/contacto",
	}
}

func TestBuildOwnership(t *testing.T) {
	sets := BuildOwnership(testSite())

	t.Run("主邮箱和别名属于站点", func(t *testing.T) {
		assert.True(t, sets.OwnsAddress("hola@uncodie.com"))
		assert.True(t, sets.OwnsAddress("Info <info@uncodie.com>"))
	})

	t.Run("同域其他地址按域名归属", func(t *testing.T) {
		assert.True(t, sets.OwnsAddress("cualquiera@uncodie.com"))
	})

	t.Run("外部地址不属于站点", func(t *testing.T) {
		assert.False(t, sets.OwnsAddress("alguien@gmail.com"))
		assert.False(t, sets.OwnsAddress("sin direccion"))
	})

	t.Run("nil配置得到空集合", func(t *testing.T) {
		empty := BuildOwnership(nil)
		assert.False(t, empty.OwnsAddress("hola@uncodie.com"))
	})
}

func TestClassifySiteOwnership(t *testing.T) {
	sets := BuildOwnership(testSite())

	t.Run("外部发给站点", func(t *testing.T) {
		o := ClassifySiteOwnership(&domain.EmailRecord{
			From: "cliente@gmail.com",
			To:   []string{"hola@uncodie.com"},
		}, sets)
		assert.False(t, o.InboundFromOwned)
		assert.False(t, o.SentToExternal)
		assert.False(t, o.SiteToSite)
	})

	t.Run("站点发往外部", func(t *testing.T) {
		o := ClassifySiteOwnership(&domain.EmailRecord{
			From: "hola@uncodie.com",
			To:   []string{"cliente@gmail.com"},
		}, sets)
		assert.True(t, o.InboundFromOwned)
		assert.True(t, o.SentToExternal)
		assert.False(t, o.SiteToSite)
	})

	t.Run("站点内部互发", func(t *testing.T) {
		o := ClassifySiteOwnership(&domain.EmailRecord{
			From: "hola@uncodie.com",
			To:   []string{"info@uncodie.com"},
		}, sets)
		assert.True(t, o.InboundFromOwned)
		assert.False(t, o.SentToExternal)
		assert.True(t, o.SiteToSite)
	})

	t.Run("ReplyTo是站点邮箱触发环路标志", func(t *testing.T) {
		o := ClassifySiteOwnership(&domain.EmailRecord{
			From:    "relay@proveedor.com",
			ReplyTo: "hola@uncodie.com",
			To:      []string{"cliente@gmail.com"},
		}, sets)
		assert.True(t, o.InboundFromOwned)
		assert.False(t, o.SentToExternal)
	})
}

func TestSiteURLDomain(t *testing.T) {
	assert.Equal(t, "uncodie.com", siteURLDomain("https://www.uncodie.com/contacto?x=1"))
	assert.Equal(t, "uncodie.com", siteURLDomain("uncodie.com"))
	assert.Equal(t, "uncodie.com", siteURLDomain("http://uncodie.com:8080"))
	assert.Equal(t, "", siteURLDomain(""))
}
