package geotech

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/strataworks/geoassist/internal/core/domain"
)

// ToolNames lists the calculators exposed to planners and tool servers.
func ToolNames() []string {
	return []string{ToolSettlement, ToolBearingCapacity}
}

// CallTool dispatches a calculator by name with loosely typed parameters,
// as produced by LLM plans and MCP argument maps.
func CallTool(name string, params map[string]any) (any, error) {
	switch name {
	case ToolSettlement:
		load, err := floatParam(params, "load")
		if err != nil {
			return nil, err
		}
		youngModulus, err := floatParam(params, "young_modulus")
		if err != nil {
			return nil, err
		}
		return Settlement(load, youngModulus)
	case ToolBearingCapacity:
		width, err := floatParam(params, "B")
		if err != nil {
			return nil, err
		}
		unitWeight, err := floatParam(params, "gamma")
		if err != nil {
			return nil, err
		}
		depth, err := floatParam(params, "Df")
		if err != nil {
			return nil, err
		}
		phi, err := intParam(params, "phi")
		if err != nil {
			return nil, err
		}
		return BearingCapacity(width, unitWeight, depth, phi)
	default:
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"call tool",
			fmt.Errorf("unknown tool %q, available: %s", name, strings.Join(ToolNames(), ", ")),
		)
	}
}

func floatParam(params map[string]any, key string) (float64, error) {
	value, ok := params[key]
	if !ok || value == nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "call tool", fmt.Errorf("parameter %q is required", key))
	}
	switch typed := value.(type) {
	case float64:
		return typed, nil
	case float32:
		return float64(typed), nil
	case int:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, domain.WrapError(domain.ErrInvalidInput, "call tool", fmt.Errorf("parameter %q is not a number", key))
		}
		return parsed, nil
	default:
		return 0, domain.WrapError(domain.ErrInvalidInput, "call tool", fmt.Errorf("parameter %q is not a number", key))
	}
}

func intParam(params map[string]any, key string) (int, error) {
	value, err := floatParam(params, key)
	if err != nil {
		return 0, err
	}
	if value != float64(int(value)) {
		return 0, domain.WrapError(domain.ErrInvalidInput, "call tool", errors.New("parameter \""+key+"\" must be an integer"))
	}
	return int(value), nil
}
