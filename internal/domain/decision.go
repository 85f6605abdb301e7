package domain

// MatchReason 标识重复判定命中的匹配层。
type MatchReason string

const (
	MatchReasonExactID                    MatchReason = "exact_id"                     // 服务商消息ID完全一致
	MatchReasonExactConservative          MatchReason = "exact_conservative"           // 主题+收件人+秒级时间容差
	MatchReasonRecipientTemporal          MatchReason = "recipient_temporal"           // 收件人一致且时间接近
	MatchReasonStableHash                 MatchReason = "stable_hash"                  // 信封指纹一致
	MatchReasonSemanticContent            MatchReason = "semantic_content"             // 语义指纹一致
	MatchReasonSubjectRecipientTimeWindow MatchReason = "subject_recipient_timewindow" // 主题+收件人+相邻小时窗口
	MatchReasonNone                       MatchReason = "none"                         // 未命中任何层
)

// Confidence 表示判定结果的置信度。
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DuplicationDecision 是一次重复检查的结果。每次检查生成，不持久化。
type DuplicationDecision struct {
	IsDuplicate bool        `json:"isDuplicate"`
	Reason      MatchReason `json:"reason"`
	Confidence  Confidence  `json:"confidence"`
	ExistingID  string      `json:"existingId,omitempty"` // 命中的已存消息ID
}

// NoDuplicate 返回未命中的判定结果。
func NoDuplicate() DuplicationDecision {
	return DuplicationDecision{
		IsDuplicate: false,
		Reason:      MatchReasonNone,
		Confidence:  ConfidenceLow,
	}
}
