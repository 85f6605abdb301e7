package httptransport

// 通用错误消息
const (
	MsgInvalidRequest   = "请求参数格式错误"
	MsgRequestBodyEmpty = "请求体不能为空"
	MsgEmailRequired    = "邮件内容不能为空"
	MsgRecipientMissing = "邮件缺少收件人"

	MsgDedupCheckFailed  = "重复检查失败，请稍后重试"
	MsgIngestFailed      = "邮件摄取失败，请稍后重试"
	MsgFilterFailed      = "批量过滤失败，请稍后重试"
	MsgFingerprintFailed = "指纹生成失败"

	MsgInternalError = "服务器内部错误，请稍后重试"
)
