package domain

// Classification 读数分类
type Classification string

const (
	ClassNormal   Classification = "normal"
	ClassWarning  Classification = "warning"
	ClassCritical Classification = "critical"
	// ClassArtifact 信号质量过低，读数视为传感器伪迹（不触发临床报警）
	ClassArtifact Classification = "artifact"
)

// AlertLevel 报警等级
type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertLow      AlertLevel = "low"
	AlertMedium   AlertLevel = "medium"
	AlertHigh     AlertLevel = "high"
	AlertCritical AlertLevel = "critical"
)

// DetailCause 报警明细的触发原因（封闭变体，见下方 AnomalyDetail）
type DetailCause string

const (
	CauseThreshold DetailCause = "threshold"   // 硬阈值触发
	CauseDeviation DetailCause = "deviation"   // 统计偏离触发
	CauseQuality   DetailCause = "quality"     // 信号质量问题
)

// AnomalyDetail 单条异常明细
// 每种触发原因只携带与其相关的字段；Extra 作为向前兼容的兜底字段袋
type AnomalyDetail struct {
	Cause   DetailCause        `json:"cause"`
	Vital   string             `json:"vital,omitempty"`   // heart_rate / spo2 / temperature
	Message string             `json:"message"`
	Value   float64            `json:"value,omitempty"`   // threshold: 实测值
	Limit   float64            `json:"limit,omitempty"`   // threshold: 越过的阈值
	ZScore  float64            `json:"z_score,omitempty"` // deviation: z 分数
	Extra   map[string]float64 `json:"extra,omitempty"`
}

// AnomalyResult 分类结果
// 由 Reading + 近期窗口确定性计算；附着到广播事件后即被丢弃（历史留存归持久化方）
type AnomalyResult struct {
	QualityScore   float64         `json:"quality_score"`
	AnomalyScore   float64         `json:"anomaly_score"`
	Classification Classification  `json:"classification"`
	AlertLevel     AlertLevel      `json:"alert_level"`
	Details        []AnomalyDetail `json:"details,omitempty"`
}

// Anomalous 是否检出任何异常明细
func (r AnomalyResult) Anomalous() bool {
	return len(r.Details) > 0
}
