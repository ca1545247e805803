package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatorToolDefinition(t *testing.T) {
	def := NewCalculatorTool().Definition()

	assert.Equal(t, "calculate", def.Function.Name)
	assert.ElementsMatch(t, []string{"operand1", "operator", "operand2"}, def.Function.Parameters.Required)
}

func TestCalculatorToolExecute(t *testing.T) {
	tool := NewCalculatorTool()

	tests := []struct {
		name      string
		arguments string
		want      string
	}{
		{
			name:      "addition",
			arguments: `{"operand1":2,"operator":"+","operand2":3}`,
			want:      "The result is 5.",
		},
		{
			name:      "subtraction",
			arguments: `{"operand1":10,"operator":"-","operand2":4.5}`,
			want:      "The result is 5.5.",
		},
		{
			name:      "multiplication",
			arguments: `{"operand1":6,"operator":"*","operand2":7}`,
			want:      "The result is 42.",
		},
		{
			name:      "division",
			arguments: `{"operand1":9,"operator":"/","operand2":2}`,
			want:      "The result is 4.5.",
		},
		{
			name:      "division by zero",
			arguments: `{"operand1":1,"operator":"/","operand2":0}`,
			want:      "Error: Division by zero is not allowed.",
		},
		{
			name:      "unsupported operator",
			arguments: `{"operand1":2,"operator":"%","operand2":3}`,
			want:      "Error: Unsupported operator '%'. Please use +, -, *, or /.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Execute(context.Background(), tt.arguments)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestCalculatorToolExecuteBadArguments(t *testing.T) {
	_, err := NewCalculatorTool().Execute(context.Background(), `{"operand1":"two"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid arguments")
}
