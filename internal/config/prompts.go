package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AgentInfo identifies the configured agent profile.
type AgentInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Domain      string `yaml:"domain"`
}

// ToolPrompt describes one calculator exposed to the planner.
type ToolPrompt struct {
	Description string            `yaml:"description"`
	Parameters  map[string]string `yaml:"parameters"`
}

// AgentConfig is the YAML-backed prompt and tool configuration for the
// agent loop. Planner and synthesis templates use {{question}},
// {{retrieved_info}} and {{calculation_results}} placeholders.
type AgentConfig struct {
	AgentInfo       AgentInfo             `yaml:"agent_info"`
	SystemPrompt    string                `yaml:"system_prompt"`
	PlanningPrompt  string                `yaml:"planning_prompt"`
	SynthesisPrompt string                `yaml:"synthesis_prompt"`
	OutOfScope      string                `yaml:"out_of_scope_answer"`
	Tools           map[string]ToolPrompt `yaml:"tools"`
}

// LoadAgentConfig reads and validates the agent YAML file.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent config: %w", err)
	}

	var cfg AgentConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse agent config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("agent config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *AgentConfig) validate() error {
	if strings.TrimSpace(c.AgentInfo.Name) == "" {
		return fmt.Errorf("agent_info.name is required")
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		return fmt.Errorf("system_prompt is required")
	}
	if strings.TrimSpace(c.PlanningPrompt) == "" {
		return fmt.Errorf("planning_prompt is required")
	}
	if strings.TrimSpace(c.SynthesisPrompt) == "" {
		return fmt.Errorf("synthesis_prompt is required")
	}
	for _, tool := range []string{"settlement_calculator", "bearing_capacity_calculator"} {
		if _, ok := c.Tools[tool]; !ok {
			return fmt.Errorf("missing required tool configuration: %s", tool)
		}
	}
	return nil
}
