package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalstream/internal/domain"
)

func windowReading(hr, spo2 int, temp float64) domain.Reading {
	return domain.Reading{DeviceID: "dev-001", HeartRate: hr, SpO2: spo2, Temp: temp, Timestamp: 1700000000}
}

func TestVitalsWindow_CountAndLast(t *testing.T) {
	w := NewVitalsWindow(3)
	assert.Equal(t, 0, w.Count())
	_, ok := w.Last()
	assert.False(t, ok)

	w.Add(windowReading(70, 98, 36.5))
	w.Add(windowReading(72, 97, 36.6))

	assert.Equal(t, 2, w.Count())
	last, ok := w.Last()
	require.True(t, ok)
	assert.Equal(t, 72, last.HeartRate)
}

func TestVitalsWindow_EvictsOldest(t *testing.T) {
	w := NewVitalsWindow(3)
	w.Add(windowReading(10, 98, 36.5))
	w.Add(windowReading(70, 98, 36.5))
	w.Add(windowReading(72, 98, 36.5))
	w.Add(windowReading(74, 98, 36.5))

	// 容量 3：第一条(10)被淘汰，均值只含 70/72/74
	assert.Equal(t, 3, w.Count())
	assert.InDelta(t, 0.0, w.HeartRateZ(72), 1e-9)
}

func TestVitalsWindow_ZScore(t *testing.T) {
	w := NewVitalsWindow(10)
	// 均值 72，总体标准差 2
	for _, hr := range []int{70, 74, 70, 74} {
		w.Add(windowReading(hr, 98, 36.5))
	}

	assert.InDelta(t, 4.0, w.HeartRateZ(80), 1e-9)
	assert.InDelta(t, -4.0, w.HeartRateZ(64), 1e-9)
}

func TestVitalsWindow_ZeroStdDevYieldsZeroZ(t *testing.T) {
	w := NewVitalsWindow(10)
	for i := 0; i < 5; i++ {
		w.Add(windowReading(70, 98, 36.5))
	}

	// 常量序列：任何值的 z 分数都定义为 0
	assert.Equal(t, 0.0, w.HeartRateZ(200))
	assert.Equal(t, 0.0, w.SpO2Z(0))
}

func TestVitalsWindow_RollingStatsStayConsistent(t *testing.T) {
	// 大量增删后滚动统计不漂移
	w := NewVitalsWindow(5)
	for i := 0; i < 1000; i++ {
		w.Add(windowReading(60+i%20, 95+i%5, 36.0+float64(i%10)/10))
	}

	assert.Equal(t, 5, w.Count())
	// 窗口内是最近 5 条，对其中一条求 z 不应出现 NaN/Inf
	z := w.HeartRateZ(70)
	assert.False(t, z != z, "z-score must not be NaN")
}

func TestVitalsWindow_MinimumCapacity(t *testing.T) {
	w := NewVitalsWindow(0)
	w.Add(windowReading(70, 98, 36.5))
	w.Add(windowReading(80, 98, 36.5))

	assert.Equal(t, 1, w.Count())
	last, ok := w.Last()
	require.True(t, ok)
	assert.Equal(t, 80, last.HeartRate)
}
