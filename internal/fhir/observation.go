// Package fhir 把读数转换为 FHIR R4 Observation 资源（编码记录转换）
package fhir

import (
	"time"

	"github.com/google/uuid"

	"vitalstream/internal/domain"
)

// Observation FHIR Observation 资源（仅保留本服务产出的字段）
type Observation struct {
	ResourceType      string           `json:"resourceType"`
	ID                string           `json:"id"`
	Status            string           `json:"status"`
	Code              CodeableConcept  `json:"code"`
	Subject           *Reference       `json:"subject,omitempty"`
	EffectiveDateTime string           `json:"effectiveDateTime"`
	ValueQuantity     Quantity         `json:"valueQuantity"`
	Device            Reference        `json:"device"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding"`
	Text   string   `json:"text"`
}

type Coding struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display"`
}

type Reference struct {
	Reference string `json:"reference"`
}

type Quantity struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	System string  `json:"system"`
	Code   string  `json:"code"`
}

// Bundle FHIR Bundle（collection 类型）
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Timestamp    string        `json:"timestamp"`
	Total        int           `json:"total"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	Resource Observation `json:"resource"`
}

const (
	loincSystem = "http://loinc.org"
	ucumSystem  = "http://unitsofmeasure.org"
)

// Builder Observation 构造器
type Builder struct {
	subjectReference string // 可选的 Patient 引用
}

func NewBuilder(subjectReference string) *Builder {
	return &Builder{subjectReference: subjectReference}
}

// Observations 一条读数对应的三个 Observation（LOINC 编码：
// 8867-4 心率、2708-6 血氧、8310-5 体温）
func (b *Builder) Observations(reading domain.Reading) []Observation {
	effective := reading.Time().UTC().Format(time.RFC3339)
	device := Reference{Reference: "Device/" + reading.DeviceID}

	var subject *Reference
	if b.subjectReference != "" {
		subject = &Reference{Reference: b.subjectReference}
	}

	return []Observation{
		{
			ResourceType: "Observation",
			ID:           uuid.NewString(),
			Status:       "final",
			Code: CodeableConcept{
				Coding: []Coding{{System: loincSystem, Code: "8867-4", Display: "Heart rate"}},
				Text:   "Heart Rate",
			},
			Subject:           subject,
			EffectiveDateTime: effective,
			ValueQuantity: Quantity{
				Value: float64(reading.HeartRate), Unit: "beats/minute",
				System: ucumSystem, Code: "/min",
			},
			Device: device,
		},
		{
			ResourceType: "Observation",
			ID:           uuid.NewString(),
			Status:       "final",
			Code: CodeableConcept{
				Coding: []Coding{{System: loincSystem, Code: "2708-6", Display: "Oxygen saturation in Arterial blood"}},
				Text:   "Oxygen Saturation (SpO2)",
			},
			Subject:           subject,
			EffectiveDateTime: effective,
			ValueQuantity: Quantity{
				Value: float64(reading.SpO2), Unit: "percent",
				System: ucumSystem, Code: "%",
			},
			Device: device,
		},
		{
			ResourceType: "Observation",
			ID:           uuid.NewString(),
			Status:       "final",
			Code: CodeableConcept{
				Coding: []Coding{{System: loincSystem, Code: "8310-5", Display: "Body temperature"}},
				Text:   "Body Temperature",
			},
			Subject:           subject,
			EffectiveDateTime: effective,
			ValueQuantity: Quantity{
				Value: reading.Temp, Unit: "degrees Celsius",
				System: ucumSystem, Code: "Cel",
			},
			Device: device,
		},
	}
}

// CollectionBundle 把若干读数的 Observation 组装成 collection Bundle
func (b *Builder) CollectionBundle(readings []domain.Reading, now time.Time) Bundle {
	var entries []BundleEntry
	for _, r := range readings {
		for _, obs := range b.Observations(r) {
			entries = append(entries, BundleEntry{Resource: obs})
		}
	}
	return Bundle{
		ResourceType: "Bundle",
		ID:           uuid.NewString(),
		Type:         "collection",
		Timestamp:    now.UTC().Format(time.RFC3339),
		Total:        len(entries),
		Entry:        entries,
	}
}
