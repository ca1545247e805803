package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// CalculatorTool performs basic arithmetic. It exists mostly as the simplest
// possible sandboxless tool: no dependencies, no I/O.
type CalculatorTool struct{}

var _ ToolExecutor = (*CalculatorTool)(nil)

// NewCalculatorTool creates a new CalculatorTool. The constructor keeps the
// creation pattern consistent across all tools.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

// Definition describes the tool with structured operands rather than a free
// expression string, so no fragile parsing happens on our side.
func (ct *CalculatorTool) Definition() Tool {
	return NewFunctionTool(
		"calculate",
		"Performs a basic arithmetic calculation (add, subtract, multiply, divide).",
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"operand1": {
					Type:        "number",
					Description: "The first number in the calculation.",
				},
				"operator": {
					Type:        "string",
					Description: "The operator to use. Must be one of '+', '-', '*', '/'.",
				},
				"operand2": {
					Type:        "number",
					Description: "The second number in the calculation.",
				},
			},
			Required: []string{"operand1", "operator", "operand2"},
		},
	)
}

// Execute performs the requested calculation.
func (ct *CalculatorTool) Execute(_ context.Context, arguments string) (string, error) {
	var args struct {
		Operand1 float64 `json:"operand1"`
		Operand2 float64 `json:"operand2"`
		Operator string  `json:"operator"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments for calculator: %w", err)
	}

	var result float64
	switch args.Operator {
	case "+":
		result = args.Operand1 + args.Operand2
	case "-":
		result = args.Operand1 - args.Operand2
	case "*":
		result = args.Operand1 * args.Operand2
	case "/":
		if args.Operand2 == 0 {
			// A message the model can understand and relay beats an error.
			return "Error: Division by zero is not allowed.", nil
		}
		result = args.Operand1 / args.Operand2
	default:
		return fmt.Sprintf("Error: Unsupported operator '%s'. Please use +, -, *, or /.", args.Operator), nil
	}

	// %g avoids trailing zeros like "10.000000".
	return fmt.Sprintf("The result is %g.", result), nil
}
