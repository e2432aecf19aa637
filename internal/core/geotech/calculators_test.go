package geotech

import (
	"testing"

	"github.com/strataworks/geoassist/internal/core/domain"
)

func TestSettlementComputesRatio(t *testing.T) {
	result, err := Settlement(1000, 25000)
	if err != nil {
		t.Fatalf("Settlement() error = %v", err)
	}
	if result.Settlement != 0.04 {
		t.Fatalf("expected settlement 0.04, got %v", result.Settlement)
	}
	if result.Formula == "" {
		t.Fatalf("expected formula in result")
	}
}

func TestSettlementRejectsNonPositiveInputs(t *testing.T) {
	cases := []struct {
		name         string
		load         float64
		youngModulus float64
	}{
		{"zero load", 0, 25000},
		{"negative load", -5, 25000},
		{"zero modulus", 1000, 0},
		{"negative modulus", 1000, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Settlement(tc.load, tc.youngModulus)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestBearingCapacityAtTabulatedAngle(t *testing.T) {
	result, err := BearingCapacity(2, 18, 1.5, 30)
	if err != nil {
		t.Fatalf("BearingCapacity() error = %v", err)
	}
	if result.Factors.Nq != 22.5 || result.Factors.Ngamma != 19.7 {
		t.Fatalf("unexpected factors: %+v", result.Factors)
	}
	if result.OverburdenTerm != 607.5 {
		t.Fatalf("expected overburden term 607.5, got %v", result.OverburdenTerm)
	}
	if result.WidthTerm != 354.6 {
		t.Fatalf("expected width term 354.6, got %v", result.WidthTerm)
	}
	if result.QUltimate != 962.1 {
		t.Fatalf("expected q_ult 962.1, got %v", result.QUltimate)
	}
}

func TestBearingCapacityInterpolatesFactors(t *testing.T) {
	result, err := BearingCapacity(2, 18, 1.5, 32)
	if err != nil {
		t.Fatalf("BearingCapacity() error = %v", err)
	}
	if result.Factors.Nc != 45.44 {
		t.Fatalf("expected interpolated Nc 45.44, got %v", result.Factors.Nc)
	}
	if result.Factors.Nq != 30.06 {
		t.Fatalf("expected interpolated Nq 30.06, got %v", result.Factors.Nq)
	}
	if result.Factors.Ngamma != 28.78 {
		t.Fatalf("expected interpolated Ngamma 28.78, got %v", result.Factors.Ngamma)
	}
	if result.QUltimate != 1329.66 {
		t.Fatalf("expected q_ult 1329.66, got %v", result.QUltimate)
	}
}

func TestBearingCapacityRejectsPhiOutsideRange(t *testing.T) {
	for _, phi := range []int{-1, 41, 90} {
		if _, err := BearingCapacity(2, 18, 1.5, phi); err == nil {
			t.Fatalf("expected error for phi=%d", phi)
		} else if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for phi=%d, got %v", phi, err)
		}
	}
}

func TestBearingCapacityAllowsZeroDepth(t *testing.T) {
	result, err := BearingCapacity(1.5, 17, 0, 20)
	if err != nil {
		t.Fatalf("BearingCapacity() error = %v", err)
	}
	if result.OverburdenTerm != 0 {
		t.Fatalf("expected zero overburden term at surface footing, got %v", result.OverburdenTerm)
	}
}

func TestCallToolDispatchesSettlement(t *testing.T) {
	out, err := CallTool(ToolSettlement, map[string]any{"load": 500.0, "young_modulus": 10000.0})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	result, ok := out.(SettlementResult)
	if !ok {
		t.Fatalf("expected SettlementResult, got %T", out)
	}
	if result.Settlement != 0.05 {
		t.Fatalf("expected settlement 0.05, got %v", result.Settlement)
	}
}

func TestCallToolCoercesJSONNumbers(t *testing.T) {
	// LLM plans arrive through encoding/json, so integers come in as float64.
	out, err := CallTool(ToolBearingCapacity, map[string]any{
		"B":     float64(2),
		"gamma": float64(18),
		"Df":    1.5,
		"phi":   float64(30),
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if _, ok := out.(BearingCapacityResult); !ok {
		t.Fatalf("expected BearingCapacityResult, got %T", out)
	}
}

func TestCallToolRejectsUnknownTool(t *testing.T) {
	_, err := CallTool("excavation_calculator", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCallToolRejectsMissingParameter(t *testing.T) {
	_, err := CallTool(ToolSettlement, map[string]any{"load": 500.0})
	if err == nil {
		t.Fatalf("expected error for missing young_modulus")
	}
}
