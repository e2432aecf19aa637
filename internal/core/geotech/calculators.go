package geotech

import (
	"errors"
	"fmt"
	"math"

	"github.com/strataworks/geoassist/internal/core/domain"
)

const (
	ToolSettlement      = "settlement_calculator"
	ToolBearingCapacity = "bearing_capacity_calculator"
)

const (
	minPhiAngle = 0
	maxPhiAngle = 40
)

type SettlementResult struct {
	Settlement   float64 `json:"settlement"`
	Load         float64 `json:"load"`
	YoungModulus float64 `json:"young_modulus"`
	Formula      string  `json:"formula"`
}

// Settlement computes immediate elastic settlement: load / young_modulus.
func Settlement(load, youngModulus float64) (SettlementResult, error) {
	if load <= 0 || math.IsNaN(load) || math.IsInf(load, 0) {
		return SettlementResult{}, domain.WrapError(domain.ErrInvalidInput, "settlement", errors.New("load must be positive"))
	}
	if youngModulus <= 0 || math.IsNaN(youngModulus) || math.IsInf(youngModulus, 0) {
		return SettlementResult{}, domain.WrapError(domain.ErrInvalidInput, "settlement", errors.New("young modulus must be positive"))
	}

	return SettlementResult{
		Settlement:   round(load/youngModulus, 4),
		Load:         load,
		YoungModulus: youngModulus,
		Formula:      "settlement = load / young_modulus",
	}, nil
}

type BearingInputs struct {
	Width      float64 `json:"b"`
	UnitWeight float64 `json:"gamma"`
	Depth      float64 `json:"df"`
	Phi        int     `json:"phi"`
}

type BearingFactors struct {
	Nc     float64 `json:"nc"`
	Nq     float64 `json:"nq"`
	Ngamma float64 `json:"nr"`
}

type BearingCapacityResult struct {
	QUltimate      float64        `json:"q_ultimate"`
	Inputs         BearingInputs  `json:"inputs"`
	Factors        BearingFactors `json:"factors"`
	OverburdenTerm float64        `json:"overburden_term"`
	WidthTerm      float64        `json:"width_term"`
	Formula        string         `json:"formula"`
}

// Terzaghi factors for cohesionless soil, tabulated every 5 degrees.
var bearingFactors = map[int]BearingFactors{
	0:  {Nc: 5.7, Nq: 1.0, Ngamma: 0.0},
	5:  {Nc: 7.3, Nq: 1.6, Ngamma: 0.5},
	10: {Nc: 9.6, Nq: 2.7, Ngamma: 1.2},
	15: {Nc: 12.9, Nq: 4.4, Ngamma: 2.5},
	20: {Nc: 17.7, Nq: 7.4, Ngamma: 5.0},
	25: {Nc: 25.1, Nq: 12.7, Ngamma: 9.7},
	30: {Nc: 37.2, Nq: 22.5, Ngamma: 19.7},
	35: {Nc: 57.8, Nq: 41.4, Ngamma: 42.4},
	40: {Nc: 95.7, Nq: 81.3, Ngamma: 100.4},
}

// BearingCapacity computes ultimate bearing capacity with the Terzaghi
// formula for cohesionless soil: q_ult = gamma*Df*Nq + 0.5*gamma*B*Ngamma.
// The cohesion term is omitted (c = 0).
func BearingCapacity(width, unitWeight, depth float64, phi int) (BearingCapacityResult, error) {
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return BearingCapacityResult{}, domain.WrapError(domain.ErrInvalidInput, "bearing capacity", errors.New("footing width must be positive"))
	}
	if unitWeight <= 0 || math.IsNaN(unitWeight) || math.IsInf(unitWeight, 0) {
		return BearingCapacityResult{}, domain.WrapError(domain.ErrInvalidInput, "bearing capacity", errors.New("unit weight must be positive"))
	}
	if depth < 0 || math.IsNaN(depth) || math.IsInf(depth, 0) {
		return BearingCapacityResult{}, domain.WrapError(domain.ErrInvalidInput, "bearing capacity", errors.New("footing depth must be non-negative"))
	}
	if phi < minPhiAngle || phi > maxPhiAngle {
		return BearingCapacityResult{}, domain.WrapError(
			domain.ErrInvalidInput,
			"bearing capacity",
			fmt.Errorf("friction angle must be between %d and %d degrees", minPhiAngle, maxPhiAngle),
		)
	}

	factors := factorsForPhi(phi)
	overburden := unitWeight * depth * factors.Nq
	widthTerm := 0.5 * unitWeight * width * factors.Ngamma

	return BearingCapacityResult{
		QUltimate: round(overburden+widthTerm, 2),
		Inputs: BearingInputs{
			Width:      width,
			UnitWeight: unitWeight,
			Depth:      depth,
			Phi:        phi,
		},
		Factors:        factors,
		OverburdenTerm: round(overburden, 2),
		WidthTerm:      round(widthTerm, 2),
		Formula:        "q_ult = gamma*Df*Nq + 0.5*gamma*B*Ngamma",
	}, nil
}

func factorsForPhi(phi int) BearingFactors {
	if factors, ok := bearingFactors[phi]; ok {
		return factors
	}

	lower := (phi / 5) * 5
	upper := lower + 5
	lowerFactors := bearingFactors[lower]
	upperFactors := bearingFactors[upper]
	ratio := float64(phi-lower) / float64(upper-lower)

	return BearingFactors{
		Nc:     round(lowerFactors.Nc+ratio*(upperFactors.Nc-lowerFactors.Nc), 2),
		Nq:     round(lowerFactors.Nq+ratio*(upperFactors.Nq-lowerFactors.Nq), 2),
		Ngamma: round(lowerFactors.Ngamma+ratio*(upperFactors.Ngamma-lowerFactors.Ngamma), 2),
	}
}

func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
