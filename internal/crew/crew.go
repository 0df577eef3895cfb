// Package crew runs a strictly ordered pipeline of named prompt stages.
// Each stage sees the task brief plus the full output of every prior stage;
// there is no branching or delegation.
package crew

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/ai"
)

type Stage struct {
	// Name identifies the stage in results ("Content Strategist").
	Name string
	// Role and Goal frame the system part of the stage prompt.
	Role string
	Goal string
	// Task phrases what the stage must produce, with {placeholders} filled
	// from the pipeline inputs.
	Task string
}

type StageOutput struct {
	Stage  string `json:"stage"`
	Output string `json:"output"`
}

type Pipeline struct {
	stages []Stage
	gen    ai.IGenerator
}

func NewPipeline(gen ai.IGenerator, stages []Stage) *Pipeline {
	return &Pipeline{stages: stages, gen: gen}
}

func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.stages))
	for _, stage := range p.stages {
		names = append(names, stage.Name)
	}
	return names
}

// Run executes the stages in order. A stage failure aborts the pipeline;
// partial results are not returned because later stages build on earlier
// ones.
func (p *Pipeline) Run(ctx context.Context, inputs map[string]string) ([]StageOutput, error) {
	logger := logutil.GetLogger(ctx)
	outputs := make([]StageOutput, 0, len(p.stages))
	for _, stage := range p.stages {
		prompt := p.buildPrompt(stage, inputs, outputs)
		logger.Info("crew stage started", zap.String("stage", stage.Name))
		result, err := p.gen.Generate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", stage.Name, err)
		}
		result = strings.TrimSpace(result)
		if result == "" {
			return nil, fmt.Errorf("stage %q produced no output", stage.Name)
		}
		outputs = append(outputs, StageOutput{Stage: stage.Name, Output: result})
	}
	return outputs, nil
}

func (p *Pipeline) buildPrompt(stage Stage, inputs map[string]string, prior []StageOutput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a %s.\nGoal: %s\n\n", stage.Role, stage.Goal)
	sb.WriteString(expand(stage.Task, inputs))
	if len(prior) > 0 {
		sb.WriteString("\n\nWork produced so far by the rest of the team:\n")
		for _, out := range prior {
			fmt.Fprintf(&sb, "\n--- %s ---\n%s\n", out.Stage, out.Output)
		}
	}
	return sb.String()
}

func expand(task string, inputs map[string]string) string {
	for key, value := range inputs {
		task = strings.ReplaceAll(task, "{"+key+"}", value)
	}
	return task
}
