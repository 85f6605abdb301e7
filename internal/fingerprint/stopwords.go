package fingerprint

// defaultStopWords 是内置的英/西双语停用词表：
// 两种语言的功能词，加上邮件里常见的问候/签名用语。
// 通过 SemanticOptions.StopWords 可整体替换以支持其他语言环境。
var defaultStopWords = buildStopWords(
	// 英语功能词
	"the", "and", "for", "are", "but", "not", "you", "your", "with", "this",
	"that", "have", "has", "from", "was", "were", "will", "would", "can",
	"could", "should", "what", "when", "where", "who", "how", "all", "any",
	"our", "out", "get", "about", "them", "they", "their", "there", "been",
	"more", "also", "into", "than", "then", "its", "his", "her", "him",
	// 西班牙语功能词
	"que", "los", "las", "una", "uno", "unos", "unas", "del", "por", "para",
	"con", "sin", "como", "pero", "mas", "este", "esta", "estos", "estas",
	"ese", "esa", "esos", "esas", "muy", "nos", "les", "sus", "tus", "mis",
	"era", "eran", "ser", "estar", "hay", "tiene", "tienen", "tambien",
	"donde", "cuando", "porque", "entre", "hasta", "desde", "sobre",
	// 问候/签名用语
	"hello", "dear", "regards", "thanks", "thank", "best", "sincerely",
	"cheers", "sent", "hola", "gracias", "saludos", "atentamente",
	"cordialmente", "estimado", "estimada", "adios",
)

func buildStopWords(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
