package classifier

import (
	"math"

	"vitalstream/internal/domain"
)

// 各阶段对 anomaly_score 的权重贡献（加和后封顶 1.0）
// 取值使单项硬阈值触发即达到默认报警阈值 0.85（文档化常量）
const (
	weightHRCritical  = 0.85 // 心动过缓/过速
	weightHypoxemia   = 0.90 // 低氧血症
	weightFever       = 0.60 // 发热
	weightHypothermia = 0.70 // 低体温
	weightDeviation   = 0.25 // 单项统计偏离（|z| > 3）
)

// 固定体温阈值（摄氏度）
const (
	feverTempHigh   = 38.0
	hypothermiaTemp = 35.5
)

// 信号质量扣分
const (
	qualityZeroSentinelPenalty = 0.4 // 单项体征为零哨兵值
	qualityJumpPenalty         = 0.2 // 相邻读数跳变不合生理
	// ArtifactQualityFloor 质量低于此值时分类强制为 artifact
	ArtifactQualityFloor = 0.5
)

// 跳变判定（相对窗口内最近一条读数）
const (
	jumpHeartRateDelta = 40.0
	jumpTempDelta      = 2.0
)

const deviationZThreshold = 3.0

// Thresholds 分类器硬阈值配置
type Thresholds struct {
	CriticalHRLow  int
	CriticalHRHigh int
	CriticalSpO2   int
}

// DefaultThresholds 默认硬阈值（40/180 HR，88 SpO2）
func DefaultThresholds() Thresholds {
	return Thresholds{CriticalHRLow: 40, CriticalHRHigh: 180, CriticalSpO2: 88}
}

// Classify 对一条读数做确定性分类
// 纯函数：除调用方持有的窗口外没有隐藏状态；相同输入产生逐字节相同的结果。
// 窗口是"此读数之前"的历史——调用方在分类之后再把读数加入窗口。
func Classify(reading domain.Reading, window *VitalsWindow, th Thresholds) domain.AnomalyResult {
	var (
		score   float64
		details []domain.AnomalyDetail
	)

	// 1. 硬阈值
	if reading.HeartRate > 0 && reading.HeartRate < th.CriticalHRLow {
		score += weightHRCritical
		details = append(details, domain.AnomalyDetail{
			Cause: domain.CauseThreshold, Vital: "heart_rate",
			Message: "bradycardia detected (low heart rate)",
			Value:   float64(reading.HeartRate), Limit: float64(th.CriticalHRLow),
		})
	} else if reading.HeartRate > th.CriticalHRHigh {
		score += weightHRCritical
		details = append(details, domain.AnomalyDetail{
			Cause: domain.CauseThreshold, Vital: "heart_rate",
			Message: "tachycardia detected (high heart rate)",
			Value:   float64(reading.HeartRate), Limit: float64(th.CriticalHRHigh),
		})
	}
	if reading.SpO2 > 0 && reading.SpO2 < th.CriticalSpO2 {
		score += weightHypoxemia
		details = append(details, domain.AnomalyDetail{
			Cause: domain.CauseThreshold, Vital: "spo2",
			Message: "hypoxemia detected (low SpO2)",
			Value:   float64(reading.SpO2), Limit: float64(th.CriticalSpO2),
		})
	}
	if reading.Temp > feverTempHigh {
		score += weightFever
		details = append(details, domain.AnomalyDetail{
			Cause: domain.CauseThreshold, Vital: "temperature",
			Message: "fever detected",
			Value:   reading.Temp, Limit: feverTempHigh,
		})
	} else if reading.Temp < hypothermiaTemp {
		score += weightHypothermia
		details = append(details, domain.AnomalyDetail{
			Cause: domain.CauseThreshold, Vital: "temperature",
			Message: "hypothermia risk",
			Value:   reading.Temp, Limit: hypothermiaTemp,
		})
	}

	// 2. 统计偏离（样本不足则跳过）
	if window != nil && window.Count() >= MinSamplesForDeviation {
		if z := window.HeartRateZ(float64(reading.HeartRate)); math.Abs(z) > deviationZThreshold {
			score += weightDeviation
			details = append(details, domain.AnomalyDetail{
				Cause: domain.CauseDeviation, Vital: "heart_rate",
				Message: "statistical heart rate anomaly", ZScore: z,
			})
		}
		if z := window.SpO2Z(float64(reading.SpO2)); math.Abs(z) > deviationZThreshold {
			score += weightDeviation
			details = append(details, domain.AnomalyDetail{
				Cause: domain.CauseDeviation, Vital: "spo2",
				Message: "statistical SpO2 anomaly", ZScore: z,
			})
		}
		if z := window.TempZ(reading.Temp); math.Abs(z) > deviationZThreshold {
			score += weightDeviation
			details = append(details, domain.AnomalyDetail{
				Cause: domain.CauseDeviation, Vital: "temperature",
				Message: "statistical temperature anomaly", ZScore: z,
			})
		}
	}

	if score > 1.0 {
		score = 1.0
	}

	// 3. 信号质量（只降不升）
	quality := 1.0
	if reading.HeartRate == 0 {
		quality -= qualityZeroSentinelPenalty
		details = append(details, domain.AnomalyDetail{
			Cause: domain.CauseQuality, Vital: "heart_rate",
			Message: "zero heart rate signal",
		})
	}
	if reading.SpO2 == 0 {
		quality -= qualityZeroSentinelPenalty
		details = append(details, domain.AnomalyDetail{
			Cause: domain.CauseQuality, Vital: "spo2",
			Message: "zero SpO2 signal",
		})
	}
	if window != nil {
		if prev, ok := window.Last(); ok {
			if math.Abs(float64(reading.HeartRate-prev.HeartRate)) > jumpHeartRateDelta {
				quality -= qualityJumpPenalty
				details = append(details, domain.AnomalyDetail{
					Cause: domain.CauseQuality, Vital: "heart_rate",
					Message: "implausible heart rate jump",
					Extra:   map[string]float64{"previous": float64(prev.HeartRate)},
				})
			}
			if math.Abs(reading.Temp-prev.Temp) > jumpTempDelta {
				quality -= qualityJumpPenalty
				details = append(details, domain.AnomalyDetail{
					Cause: domain.CauseQuality, Vital: "temperature",
					Message: "implausible temperature jump",
					Extra:   map[string]float64{"previous": prev.Temp},
				})
			}
		}
	}
	if quality < 0 {
		quality = 0
	}

	// 4. 分类；低质量样本不应触发临床报警，强制 artifact
	classification := classify(score)
	alertLevel := bandAlertLevel(score)
	if quality < ArtifactQualityFloor {
		classification = domain.ClassArtifact
		alertLevel = domain.AlertNone
	}

	return domain.AnomalyResult{
		QualityScore:   quality,
		AnomalyScore:   score,
		Classification: classification,
		AlertLevel:     alertLevel,
		Details:        details,
	}
}

func classify(score float64) domain.Classification {
	switch {
	case score < 0.5:
		return domain.ClassNormal
	case score < 0.8:
		return domain.ClassWarning
	default:
		return domain.ClassCritical
	}
}

// bandAlertLevel anomaly_score 分档映射报警等级
// 默认报警阈值 0.85 下只有 high/critical 可达；调低阈值后 low/medium 生效
func bandAlertLevel(score float64) domain.AlertLevel {
	switch {
	case score < 0.5:
		return domain.AlertNone
	case score < 0.65:
		return domain.AlertLow
	case score < 0.8:
		return domain.AlertMedium
	case score < 0.95:
		return domain.AlertHigh
	default:
		return domain.AlertCritical
	}
}

// ShouldAlert 是否生成独立的 Alert 事件
// 仅当分数达到阈值且分类不是 artifact
func ShouldAlert(result domain.AnomalyResult, alertThreshold float64) bool {
	return result.AnomalyScore >= alertThreshold && result.Classification != domain.ClassArtifact
}

// AlertMessage 报警等级对应的提示文案
func AlertMessage(level domain.AlertLevel) string {
	switch level {
	case domain.AlertCritical:
		return "Critical vital signs detected! Immediate attention required."
	case domain.AlertHigh:
		return "Abnormal vital signs detected. Medical review recommended."
	case domain.AlertMedium:
		return "Unusual vital signs pattern detected."
	case domain.AlertLow:
		return "Minor vital signs deviation detected."
	default:
		return ""
	}
}
