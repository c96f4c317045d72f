package classifier

import (
	"math"

	"vitalstream/internal/domain"
)

// MinSamplesForDeviation z-score 阶段要求的最小样本数
// 窗口样本不足时跳过统计偏离检测（文档化常量，见 DESIGN.md）
const MinSamplesForDeviation = 10

// vitalStats 单项生命体征的滚动统计（sum/sumSq，O(1) 增删）
type vitalStats struct {
	sum   float64
	sumSq float64
}

func (s *vitalStats) add(v float64)    { s.sum += v; s.sumSq += v * v }
func (s *vitalStats) remove(v float64) { s.sum -= v; s.sumSq -= v * v }

func (s *vitalStats) mean(n int) float64 {
	if n == 0 {
		return 0
	}
	return s.sum / float64(n)
}

func (s *vitalStats) stdDev(n int) float64 {
	if n < 2 {
		return 0
	}
	mean := s.mean(n)
	variance := s.sumSq/float64(n) - mean*mean
	if variance < 0 {
		// 浮点误差可能产生微小负数
		return 0
	}
	return math.Sqrt(variance)
}

// VitalsWindow 单设备的近期读数窗口（环形缓冲，容量固定）
// 非并发安全：调用方（dispatcher）负责串行化同一设备的访问
type VitalsWindow struct {
	readings []domain.Reading
	capacity int
	index    int
	count    int

	hr   vitalStats
	spo2 vitalStats
	temp vitalStats
}

func NewVitalsWindow(capacity int) *VitalsWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &VitalsWindow{
		readings: make([]domain.Reading, capacity),
		capacity: capacity,
	}
}

// Add 追加一条读数，窗口满时淘汰最旧的
func (w *VitalsWindow) Add(r domain.Reading) {
	if w.count >= w.capacity {
		old := w.readings[w.index]
		w.hr.remove(float64(old.HeartRate))
		w.spo2.remove(float64(old.SpO2))
		w.temp.remove(old.Temp)
	} else {
		w.count++
	}

	w.readings[w.index] = r
	w.hr.add(float64(r.HeartRate))
	w.spo2.add(float64(r.SpO2))
	w.temp.add(r.Temp)

	w.index = (w.index + 1) % w.capacity
}

// Count 当前样本数
func (w *VitalsWindow) Count() int { return w.count }

// Last 最近一条读数（窗口为空时返回 false）
func (w *VitalsWindow) Last() (domain.Reading, bool) {
	if w.count == 0 {
		return domain.Reading{}, false
	}
	idx := (w.index - 1 + w.capacity) % w.capacity
	return w.readings[idx], true
}

// ZScore 指定值相对窗口统计的 z 分数；标准差为 0 时返回 0
func zScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// HeartRateZ / SpO2Z / TempZ 各项体征的 z 分数
func (w *VitalsWindow) HeartRateZ(v float64) float64 {
	return zScore(v, w.hr.mean(w.count), w.hr.stdDev(w.count))
}

func (w *VitalsWindow) SpO2Z(v float64) float64 {
	return zScore(v, w.spo2.mean(w.count), w.spo2.stdDev(w.count))
}

func (w *VitalsWindow) TempZ(v float64) float64 {
	return zScore(v, w.temp.mean(w.count), w.temp.stdDev(w.count))
}
