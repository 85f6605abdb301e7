// Package match 包含别名匹配与站点归属分类：
// 判断一个目的地址是否属于被监控邮箱，以及一封邮件相对站点的流向。
package match

import (
	"strings"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/normalize"
)

// destinationHeaderFallbacks 是目的地址的头部回退链，按固定优先级排列。
// 转发与别名投递常常只在这些头部里保留真实目的地址。
var destinationHeaderFallbacks = []string{
	"delivered-to",
	"x-original-to",
	"x-envelope-to",
	"x-rcpt-to",
	"envelope-to",
}

// DestinationCandidates 收集一封邮件的全部候选目的字段：
// 显式传入的目的字段（为空时取收件人列表）加上头部回退链，
// 逐项小写去空白，空项丢弃。返回的是原始字段文本，可能含列表或显示名。
func DestinationCandidates(email *domain.EmailRecord, destinationField string) []string {
	candidates := make([]string, 0, len(destinationHeaderFallbacks)+2)

	appendCandidate := func(field string) {
		field = strings.ToLower(strings.TrimSpace(field))
		if field != "" {
			candidates = append(candidates, field)
		}
	}

	if destinationField != "" {
		appendCandidate(destinationField)
	} else if email != nil {
		for _, to := range email.To {
			appendCandidate(to)
		}
	}

	if email != nil {
		for _, header := range destinationHeaderFallbacks {
			appendCandidate(email.Header(header))
		}
	}

	return candidates
}

// FieldMatchesAlias 判断单个目的字段是否匹配某个别名。
// 依次尝试：完全相等、子串包含、<email> 组内出现、
// 逗号分隔列表中某一项（项本身可以是 Name <email> 形式）。
func FieldMatchesAlias(field, alias string) bool {
	field = strings.ToLower(strings.TrimSpace(field))
	alias = strings.ToLower(strings.TrimSpace(alias))
	if field == "" || alias == "" {
		return false
	}

	if field == alias {
		return true
	}
	if strings.Contains(field, alias) {
		return true
	}
	if strings.Contains(field, "<"+alias+">") {
		return true
	}

	for _, entry := range strings.Split(field, ",") {
		if normalize.Address(entry) == alias {
			return true
		}
	}

	return false
}

// IsValidByAlias 判断邮件的任一目的字段是否命中任一站点别名。
// 任意 (别名, 字段) 组合首次命中即返回 true。
//
// 助理发件人旁路不在此处理：发件地址是否属于助理由调用方查询，
// 命中时整个别名校验被跳过，邮件无条件接受。
func IsValidByAlias(email *domain.EmailRecord, destinationField string, aliases []string) bool {
	if len(aliases) == 0 {
		return false
	}

	candidates := DestinationCandidates(email, destinationField)
	for _, alias := range aliases {
		for _, field := range candidates {
			if FieldMatchesAlias(field, alias) {
				return true
			}
		}
	}
	return false
}
