package entity

import (
	"math"
	"strconv"
	"strings"
)

// MaxColorDistance is the Euclidean distance between black and white in RGB space.
const MaxColorDistance = 442.0

type FeatherDirection string

const (
	FeatherTowardBackground FeatherDirection = "background"
	FeatherTowardSubject    FeatherDirection = "subject"
)

type KeyColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

type ChromaKeySettings struct {
	Colors           []KeyColor       `json:"colors"`
	Tolerance        float64          `json:"tolerance"`
	Feather          float64          `json:"feather"`
	Choke            float64          `json:"choke"`
	Smoothing        float64          `json:"smoothing"`
	FeatherDirection FeatherDirection `json:"feather_direction"`
}

// SettingsFingerprint is equal for two settings values iff every field is equal.
type SettingsFingerprint string

// ClampedTolerance returns the tolerance clamped into [0, MaxColorDistance].
func (s ChromaKeySettings) ClampedTolerance() float64 {
	if math.IsNaN(s.Tolerance) || s.Tolerance < 0 {
		return 0
	}
	return math.Min(s.Tolerance, MaxColorDistance)
}

// Direction returns the feather direction, defaulting to background.
func (s ChromaKeySettings) Direction() FeatherDirection {
	if s.FeatherDirection == FeatherTowardSubject {
		return FeatherTowardSubject
	}
	return FeatherTowardBackground
}

// Fingerprint encodes every field. Colour order is significant. Floats use the
// shortest exact representation so distinct values never collide.
func (s ChromaKeySettings) Fingerprint() SettingsFingerprint {
	var b strings.Builder
	b.WriteString("c=")
	for i, c := range s.Colors {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.Itoa(int(c.R)))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(int(c.G)))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(int(c.B)))
	}
	writeFloat(&b, "|t=", s.Tolerance)
	writeFloat(&b, "|f=", s.Feather)
	writeFloat(&b, "|k=", s.Choke)
	writeFloat(&b, "|s=", s.Smoothing)
	b.WriteString("|d=")
	b.WriteString(string(s.FeatherDirection))
	return SettingsFingerprint(b.String())
}

func writeFloat(b *strings.Builder, label string, v float64) {
	b.WriteString(label)
	b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}

// SettingsRequest is the wire form of ChromaKeySettings. Nil fields take the
// worker's configured defaults; colours are never defaulted, an empty set means
// pass-through.
type SettingsRequest struct {
	Colors           []KeyColor       `json:"colors"`
	Tolerance        *float64         `json:"tolerance,omitempty"`
	Feather          *float64         `json:"feather,omitempty"`
	Choke            *float64         `json:"choke,omitempty"`
	Smoothing        *float64         `json:"smoothing,omitempty"`
	FeatherDirection FeatherDirection `json:"feather_direction,omitempty"`
}

func (r SettingsRequest) Resolve(def ChromaKeySettings) ChromaKeySettings {
	out := ChromaKeySettings{
		Colors:           r.Colors,
		Tolerance:        def.Tolerance,
		Feather:          def.Feather,
		Choke:            def.Choke,
		Smoothing:        def.Smoothing,
		FeatherDirection: def.Direction(),
	}
	if r.Tolerance != nil {
		out.Tolerance = *r.Tolerance
	}
	if r.Feather != nil {
		out.Feather = *r.Feather
	}
	if r.Choke != nil {
		out.Choke = *r.Choke
	}
	if r.Smoothing != nil {
		out.Smoothing = *r.Smoothing
	}
	if r.FeatherDirection != "" {
		out.FeatherDirection = r.FeatherDirection
	}
	return out
}
