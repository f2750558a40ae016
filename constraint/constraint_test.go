package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/oimo/actor"
)

func TestMixFriction(t *testing.T) {
	tests := []struct {
		name     string
		f1, f2   float64
		expected float64
	}{
		{"both zero", 0, 0, 0},
		{"one zero", 0, 0.8, 0},
		{"same friction", 0.5, 0.5, 0.5},
		{"geometric mean", 0.2, 0.8, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MixFriction(tt.f1, tt.f2)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("MixFriction() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMixRestitution(t *testing.T) {
	tests := []struct {
		name     string
		e1, e2   float64
		expected float64
	}{
		{"both zero restitution", 0, 0, 0},
		{"one zero, one high restitution", 0, 0.8, 0},
		{"both perfect restitution", 1, 1, 1},
		{"geometric mean", 0.25, 1, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MixRestitution(tt.e1, tt.e2)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("MixRestitution() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMixPositionCorrection(t *testing.T) {
	tests := []struct {
		name     string
		p1, p2   PositionCorrection
		expected PositionCorrection
	}{
		{"baumgarte", actor.PositionCorrectionBaumgarte, actor.PositionCorrectionBaumgarte, actor.PositionCorrectionBaumgarte},
		{"split impulse wins over baumgarte", actor.PositionCorrectionBaumgarte, actor.PositionCorrectionSplitImpulse, actor.PositionCorrectionSplitImpulse},
		{"ngs wins", actor.PositionCorrectionNgs, actor.PositionCorrectionSplitImpulse, actor.PositionCorrectionNgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mixPositionCorrection(tt.p1, tt.p2); got != tt.expected {
				t.Errorf("mixPositionCorrection() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewTimeStep(t *testing.T) {
	tests := []struct {
		name       string
		dt         float64
		previousDt float64
		invDt      float64
		dtRatio    float64
	}{
		{"first step", 1.0 / 60, 0, 60, 1},
		{"constant dt", 1.0 / 60, 1.0 / 60, 60, 1},
		{"halved dt", 1.0 / 60, 1.0 / 30, 60, 0.5},
		{"zero dt", 0, 1.0 / 60, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := NewTimeStep(tt.dt, tt.previousDt)
			if math.Abs(ts.InvDt-tt.invDt) > 1e-9 {
				t.Errorf("InvDt = %v, want %v", ts.InvDt, tt.invDt)
			}
			if math.Abs(ts.DtRatio-tt.dtRatio) > 1e-9 {
				t.Errorf("DtRatio = %v, want %v", ts.DtRatio, tt.dtRatio)
			}
		})
	}
}
