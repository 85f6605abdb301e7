package match

import (
	"strings"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/normalize"
)

// SiteOwnership 是一封邮件相对被监控站点的流向分类结果。
// 三个标志互不排斥：InboundFromOwned 只看发件方，
// 另外两个在发件方属于站点时进一步区分收件方。
type SiteOwnership struct {
	// InboundFromOwned 表示发件人或 Reply-To 本身就是站点邮箱。
	// 入站处理必须抑制这类邮件（环路防护），否则代理的回复会被再次入站处理。
	InboundFromOwned bool `json:"inboundFromOwned"`
	// SentToExternal 表示站点发往外部地址，用于圈定混合邮箱中"站点已发送"的子集。
	SentToExternal bool `json:"sentToExternal"`
	// SiteToSite 表示收发双方都属于站点。
	SiteToSite bool `json:"siteToSite"`
}

// OwnershipSets 是站点拥有的地址与域名集合，用于归属判定。
type OwnershipSets struct {
	addresses map[string]struct{}
	domains   map[string]struct{}
}

// BuildOwnership 从站点配置构建归属集合：
// 地址集合包含主邮箱与全部别名；域名集合包含这些地址的域名部分，
// 以及站点公开 URL 的域名（若配置）。
func BuildOwnership(site *domain.SiteConfig) *OwnershipSets {
	sets := &OwnershipSets{
		addresses: make(map[string]struct{}),
		domains:   make(map[string]struct{}),
	}
	if site == nil {
		return sets
	}

	for _, addr := range site.OwnedAddresses() {
		sets.addresses[addr] = struct{}{}
		if d := normalize.Domain(addr); d != "" {
			sets.domains[d] = struct{}{}
		}
	}

	if d := siteURLDomain(site.Domain); d != "" {
		sets.domains[d] = struct{}{}
	}

	return sets
}

// OwnsAddress 判断一个地址是否属于站点（精确地址或域名归属）。
func (o *OwnershipSets) OwnsAddress(raw string) bool {
	addr := normalize.Address(raw)
	if !strings.Contains(addr, "@") {
		return false
	}
	if _, ok := o.addresses[addr]; ok {
		return true
	}
	_, ok := o.domains[normalize.Domain(addr)]
	return ok
}

// ClassifySiteOwnership 根据发件人与收件人的集合归属判定邮件流向。
func ClassifySiteOwnership(email *domain.EmailRecord, sets *OwnershipSets) SiteOwnership {
	senderOwned := sets.OwnsAddress(email.From)
	replyToOwned := email.ReplyTo != "" && sets.OwnsAddress(email.ReplyTo)

	recipientOwned := false
	for _, to := range email.To {
		if sets.OwnsAddress(to) {
			recipientOwned = true
			break
		}
	}

	return SiteOwnership{
		InboundFromOwned: senderOwned || replyToOwned,
		SentToExternal:   senderOwned && !recipientOwned,
		SiteToSite:       senderOwned && recipientOwned,
	}
}

// siteURLDomain 从站点公开 URL 中提取域名（剥离协议、路径和 www 前缀）。
func siteURLDomain(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return s
}
