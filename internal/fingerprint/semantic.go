package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Uncodier/API-sub015/internal/domain"
)

var (
	scriptStylePattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
	numberPattern      = regexp.MustCompile(`^[0-9]+$`)
)

// SemanticOptions 控制语义指纹的关键词提取。
// 停用词表可替换，便于支持更多语言环境。
type SemanticOptions struct {
	StopWords      map[string]struct{} // nil 时使用内置英/西双语表
	MaxTokens      int                 // 参与哈希的关键词上限
	MinTokenLength int                 // 短于该长度的词丢弃
}

// DefaultSemanticOptions 返回默认的关键词提取参数。
func DefaultSemanticOptions() SemanticOptions {
	return SemanticOptions{
		StopWords:      defaultStopWords,
		MaxTokens:      20,
		MinTokenLength: 3,
	}
}

// SemanticHash 使用默认参数计算语义指纹。
func SemanticHash(email *domain.EmailRecord) string {
	return SemanticHashWithOptions(email, DefaultSemanticOptions())
}

// SemanticHashWithOptions 提取正文的关键词规范形并哈希，格式 sem-<sha256hex>。
//
// 流程：优先纯文本（否则剥离 HTML 标记），去重音、小写、去标点，
// 过滤停用词/短词/纯数字，排序后截断到上限再拼接哈希。
// 排序使得指纹对引用/转发引入的段落顺序变化不敏感，但对实际内容差异敏感。
// 正文为空或没有任何有效关键词时返回空串，调用方跳过语义匹配层。
func SemanticHashWithOptions(email *domain.EmailRecord, opts SemanticOptions) string {
	if email == nil {
		return ""
	}

	body := email.Text
	if body == "" && email.HTML != "" {
		body = stripMarkup(email.HTML)
	}
	if strings.TrimSpace(body) == "" {
		return ""
	}

	if opts.StopWords == nil {
		opts.StopWords = defaultStopWords
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 20
	}
	if opts.MinTokenLength <= 0 {
		opts.MinTokenLength = 3
	}

	tokens := extractKeywords(body, opts)
	if len(tokens) == 0 {
		return ""
	}

	sum := sha256.Sum256([]byte(strings.Join(tokens, " ")))
	return "sem-" + hex.EncodeToString(sum[:])
}

// stripMarkup 去掉 HTML 的 script/style 块、全部标签和实体编码。
func stripMarkup(markup string) string {
	s := scriptStylePattern.ReplaceAllString(markup, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	return html.UnescapeString(s)
}

// extractKeywords 把正文归约为排序去重后的关键词列表。
func extractKeywords(body string, opts SemanticOptions) []string {
	s := foldAccents(strings.ToLower(body))

	// 标点替换为空格，只保留字母、数字和空白
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)

	seen := make(map[string]struct{})
	tokens := make([]string, 0, opts.MaxTokens)
	for _, tok := range strings.Fields(s) {
		if len([]rune(tok)) < opts.MinTokenLength {
			continue
		}
		if numberPattern.MatchString(tok) {
			continue
		}
		if _, stop := opts.StopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}

	sort.Strings(tokens)
	if len(tokens) > opts.MaxTokens {
		tokens = tokens[:opts.MaxTokens]
	}
	return tokens
}

// accentFolder 去掉组合重音符号（NFD 分解后移除 Mn 类码点）。
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldAccents(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return out
}
