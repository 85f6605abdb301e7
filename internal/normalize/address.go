package normalize

import (
	"regexp"
	"strings"
)

// emailPattern 是通用邮箱提取模式，用于无尖括号的自由文本。
var emailPattern = regexp.MustCompile(`[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

// Address 从任意头部文本中提取并规范化单个邮箱地址。
//
// 提取顺序：
//  1. 字段含 @ 且不含 <：直接返回（小写、去空白）
//  2. 取第一个 <...> 组的内容
//  3. 对整个字符串做通用邮箱模式搜索，取第一个匹配
//  4. 都不命中时返回小写去空白后的原字符串
//
// 纯函数、不抛错、幂等：Address(Address(x)) == Address(x)。
// 调用方须将不含 @ 的结果视为"无可用地址"。
func Address(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return s
	}

	if strings.Contains(s, "@") && !strings.Contains(s, "<") {
		return s
	}

	if start := strings.Index(s, "<"); start >= 0 {
		if end := strings.Index(s[start:], ">"); end > 0 {
			inner := strings.TrimSpace(s[start+1 : start+end])
			if inner != "" {
				return inner
			}
		}
	}

	if m := emailPattern.FindString(s); m != "" {
		return m
	}

	return s
}

// AddressList 将逗号分隔的地址列表拆分并逐项规范化，空项丢弃。
// 每一项本身可以是 `Name <email>` 形式。
func AddressList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if addr := Address(p); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Domain 返回已规范化地址的域名部分，无 @ 时返回空串。
func Domain(addr string) string {
	addr = Address(addr)
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return addr[at+1:]
}
