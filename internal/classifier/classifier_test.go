package classifier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalstream/internal/domain"
)

func mustReading(t *testing.T, hr, spo2 int, temp float64) domain.Reading {
	t.Helper()
	r, err := domain.NewReading("dev-001", hr, spo2, temp, 1700000000)
	require.NoError(t, err)
	return r
}

func TestClassify_NormalReading(t *testing.T) {
	r := mustReading(t, 75, 98, 36.8)

	result := Classify(r, nil, DefaultThresholds())

	assert.Equal(t, domain.ClassNormal, result.Classification)
	assert.Equal(t, domain.AlertNone, result.AlertLevel)
	assert.Equal(t, 0.0, result.AnomalyScore)
	assert.Equal(t, 1.0, result.QualityScore)
	assert.Empty(t, result.Details)
}

func TestClassify_Tachycardia(t *testing.T) {
	r := mustReading(t, 185, 98, 36.8)

	result := Classify(r, nil, DefaultThresholds())

	assert.Equal(t, domain.ClassCritical, result.Classification)
	assert.GreaterOrEqual(t, result.AnomalyScore, 0.85)
	assert.NotEqual(t, domain.AlertNone, result.AlertLevel)
	require.Len(t, result.Details, 1)
	assert.Equal(t, domain.CauseThreshold, result.Details[0].Cause)
	assert.Equal(t, "heart_rate", result.Details[0].Vital)
	assert.True(t, ShouldAlert(result, 0.85))
}

func TestClassify_Bradycardia(t *testing.T) {
	r := mustReading(t, 32, 98, 36.8)

	result := Classify(r, nil, DefaultThresholds())

	assert.Equal(t, domain.ClassCritical, result.Classification)
	assert.True(t, ShouldAlert(result, 0.85))
}

func TestClassify_Hypoxemia(t *testing.T) {
	r := mustReading(t, 75, 84, 36.8)

	result := Classify(r, nil, DefaultThresholds())

	assert.Equal(t, domain.ClassCritical, result.Classification)
	assert.GreaterOrEqual(t, result.AnomalyScore, 0.85)
	require.Len(t, result.Details, 1)
	assert.Equal(t, "spo2", result.Details[0].Vital)
}

func TestClassify_FeverAloneIsWarning(t *testing.T) {
	r := mustReading(t, 75, 98, 38.6)

	result := Classify(r, nil, DefaultThresholds())

	assert.Equal(t, domain.ClassWarning, result.Classification)
	assert.False(t, ShouldAlert(result, 0.85))
}

func TestClassify_CombinedBreachesCapAtOne(t *testing.T) {
	r := mustReading(t, 190, 80, 39.5)

	result := Classify(r, nil, DefaultThresholds())

	assert.Equal(t, 1.0, result.AnomalyScore)
	assert.Equal(t, domain.ClassCritical, result.Classification)
	assert.Equal(t, domain.AlertCritical, result.AlertLevel)
	assert.Len(t, result.Details, 3)
}

func TestClassify_ZeroSentinelsForceArtifact(t *testing.T) {
	r := mustReading(t, 0, 0, 36.8)

	result := Classify(r, nil, DefaultThresholds())

	// 两个零哨兵：质量 1.0 - 0.4 - 0.4 = 0.2，低于 artifact 下限
	assert.InDelta(t, 0.2, result.QualityScore, 1e-9)
	assert.Equal(t, domain.ClassArtifact, result.Classification)
	assert.Equal(t, domain.AlertNone, result.AlertLevel)
	assert.False(t, ShouldAlert(result, 0.85))
}

func TestClassify_ZeroSentinelDoesNotTriggerThreshold(t *testing.T) {
	// HR=0 是信号缺失而不是心动过缓；SpO2=0 同理
	r := mustReading(t, 0, 0, 36.8)

	result := Classify(r, nil, DefaultThresholds())

	for _, d := range result.Details {
		assert.Equal(t, domain.CauseQuality, d.Cause)
	}
}

func TestClassify_ImplausibleJumpDegradesQuality(t *testing.T) {
	window := NewVitalsWindow(60)
	window.Add(mustReading(t, 72, 98, 36.8))

	r := mustReading(t, 130, 98, 36.8)
	result := Classify(r, window, DefaultThresholds())

	assert.InDelta(t, 0.8, result.QualityScore, 1e-9)
	require.Len(t, result.Details, 1)
	assert.Equal(t, domain.CauseQuality, result.Details[0].Cause)
	// 单次跳变只降质量，不构成 artifact
	assert.Equal(t, domain.ClassNormal, result.Classification)
}

func TestClassify_DeviationRequiresMinSamples(t *testing.T) {
	window := NewVitalsWindow(60)
	for i := 0; i < MinSamplesForDeviation-1; i++ {
		window.Add(mustReading(t, 70+i%3, 98, 36.8))
	}

	// 样本不足：明显偏离也不触发 deviation
	r := mustReading(t, 120, 98, 36.8)
	result := Classify(r, window, DefaultThresholds())
	for _, d := range result.Details {
		assert.NotEqual(t, domain.CauseDeviation, d.Cause)
	}
}

func TestClassify_StatisticalDeviation(t *testing.T) {
	window := NewVitalsWindow(60)
	for i := 0; i < 20; i++ {
		window.Add(mustReading(t, 70+i%3, 98, 36.8))
	}

	// 基线 ~71±1，120 的 z 分数远超 3
	r := mustReading(t, 120, 98, 36.8)
	result := Classify(r, window, DefaultThresholds())

	found := false
	for _, d := range result.Details {
		if d.Cause == domain.CauseDeviation && d.Vital == "heart_rate" {
			found = true
			assert.Greater(t, d.ZScore, 3.0)
		}
	}
	assert.True(t, found, "expected a heart_rate deviation detail")
	// 单项统计偏离只到 0.25：不足以报警
	assert.InDelta(t, 0.25, result.AnomalyScore, 1e-9)
	assert.False(t, ShouldAlert(result, 0.85))
}

func TestClassify_Deterministic(t *testing.T) {
	buildWindow := func() *VitalsWindow {
		w := NewVitalsWindow(60)
		for i := 0; i < 15; i++ {
			w.Add(mustReading(t, 70+i%5, 96+i%3, 36.5))
		}
		return w
	}
	r := mustReading(t, 182, 85, 38.4)

	first := Classify(r, buildWindow(), DefaultThresholds())
	second := Classify(r, buildWindow(), DefaultThresholds())

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestShouldAlert_ArtifactNeverAlerts(t *testing.T) {
	result := domain.AnomalyResult{
		AnomalyScore:   0.95,
		Classification: domain.ClassArtifact,
	}
	assert.False(t, ShouldAlert(result, 0.85))
}

func TestBandAlertLevel(t *testing.T) {
	cases := []struct {
		score float64
		want  domain.AlertLevel
	}{
		{0.0, domain.AlertNone},
		{0.49, domain.AlertNone},
		{0.5, domain.AlertLow},
		{0.65, domain.AlertMedium},
		{0.8, domain.AlertHigh},
		{0.95, domain.AlertCritical},
		{1.0, domain.AlertCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, bandAlertLevel(tc.score), "score=%v", tc.score)
	}
}

func TestAlertMessage(t *testing.T) {
	assert.NotEmpty(t, AlertMessage(domain.AlertCritical))
	assert.NotEmpty(t, AlertMessage(domain.AlertHigh))
	assert.Empty(t, AlertMessage(domain.AlertNone))
}
