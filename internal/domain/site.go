package domain

import "strings"

// SiteConfig 描述一个被监控的站点邮箱。
// 配置的存储与管理属于外部协作方；引擎只消费这一结构。
type SiteConfig struct {
	SiteID       string   `json:"siteId"`
	EmailAddress string   `json:"emailAddress"` // 被监控的主邮箱地址
	Aliases      []string `json:"aliases,omitempty"`
	// Domain 是站点对外公开的 URL 域名（可含协议前缀），可选
	Domain string `json:"domain,omitempty"`
	// AssistantAddresses 是免别名校验的发件地址（助理/线索邮箱）
	AssistantAddresses []string `json:"assistantAddresses,omitempty"`
}

// OwnedAddresses 返回站点拥有的全部地址（主邮箱 + 别名），小写去重。
func (s *SiteConfig) OwnedAddresses() []string {
	seen := make(map[string]struct{}, len(s.Aliases)+1)
	out := make([]string, 0, len(s.Aliases)+1)
	for _, addr := range append([]string{s.EmailAddress}, s.Aliases...) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// IsAssistantSender 判断发件地址是否属于配置的助理地址。
func (s *SiteConfig) IsAssistantSender(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return false
	}
	for _, a := range s.AssistantAddresses {
		if strings.ToLower(strings.TrimSpace(a)) == addr {
			return true
		}
	}
	return false
}
