package normalize

import (
	"regexp"
	"strings"
)

// SubjectPrefixLength 是主题参与指纹计算的最大前缀长度，
// 用于吸收主题尾部的签名/引用噪声。
const SubjectPrefixLength = 50

// replyPrefixPattern 匹配开头的 Re:/Fwd:/Fw: 前缀（大小写不敏感，可重复）。
var replyPrefixPattern = regexp.MustCompile(`(?i)^(\s*(re|fwd|fw)\s*:\s*)+`)

// Subject 规范化邮件主题：剥离回复/转发前缀、折叠空白、小写、
// 截断到固定前缀长度。纯函数、不抛错、幂等。
func Subject(raw string) string {
	s := replyPrefixPattern.ReplaceAllString(raw, "")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ToLower(s)

	runes := []rune(s)
	if len(runes) > SubjectPrefixLength {
		s = strings.TrimSpace(string(runes[:SubjectPrefixLength]))
	}
	return s
}
