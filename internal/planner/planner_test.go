package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/uipilot/internal/task"
)

// mockGenerator implements Generator for testing.
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestNewService_RequiresGenerator(t *testing.T) {
	svc, err := NewService(nil, nil)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "generator is required")
}

func TestService_Plan(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("1. Open Settings app\n2. Navigate to Network settings\n3. Enable Airplane Mode\n4. Verify status", nil).
		Once()

	svc, err := NewService(gen, nil)
	require.NoError(t, err)

	steps, err := svc.Plan(context.Background(), "Enable Airplane Mode from Settings")
	require.NoError(t, err)
	require.Len(t, steps, 4)

	assert.Equal(t, task.Step{Index: 1, Text: "Open Settings app"}, steps[0])
	assert.Equal(t, task.Step{Index: 2, Text: "Navigate to Network settings"}, steps[1])
	assert.Equal(t, task.Step{Index: 3, Text: "Enable Airplane Mode"}, steps[2])
	assert.Equal(t, task.Step{Index: 4, Text: "Verify status"}, steps[3])

	gen.AssertExpectations(t)
}

func TestService_Plan_PromptEmbedsGoal(t *testing.T) {
	var captured string
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.String(1) }).
		Return("1. step one", nil)

	svc, err := NewService(gen, nil)
	require.NoError(t, err)

	_, err = svc.Plan(context.Background(), "Take a screenshot of the home screen")
	require.NoError(t, err)

	assert.Contains(t, captured, "numbered list")
	assert.Contains(t, captured, "Goal: Take a screenshot of the home screen")
}

func TestService_Plan_GeneratorCalledOnce(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return("1. only step", nil)

	svc, err := NewService(gen, nil)
	require.NoError(t, err)

	_, err = svc.Plan(context.Background(), "do the thing")
	require.NoError(t, err)

	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestService_Plan_GeneratorError(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", errors.New("upstream unavailable"))

	svc, err := NewService(gen, nil)
	require.NoError(t, err)

	steps, err := svc.Plan(context.Background(), "anything")
	require.Error(t, err)
	assert.Nil(t, steps)
	assert.ErrorIs(t, err, task.ErrPlanningFailed)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestService_Plan_NoStepsInResponse(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("I could not break this goal into steps.", nil)

	svc, err := NewService(gen, nil)
	require.NoError(t, err)

	steps, err := svc.Plan(context.Background(), "anything")
	require.Error(t, err)
	assert.Nil(t, steps)
	assert.ErrorIs(t, err, task.ErrPlanningFailed)
	assert.Contains(t, err.Error(), "no steps parsed")
}

func TestService_Plan_ReindexesNonContiguousNumbering(t *testing.T) {
	response := strings.Join([]string{
		"Here is the plan:",
		"",
		"3. first action",
		"7) second action",
		"some prose in between",
		"12. third action",
		"",
		"Good luck!",
	}, "\n")

	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return(response, nil)

	svc, err := NewService(gen, nil)
	require.NoError(t, err)

	steps, err := svc.Plan(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, steps, 3)

	for i, step := range steps {
		assert.Equal(t, i+1, step.Index)
		assert.NotEmpty(t, step.Text)
	}
	assert.Equal(t, "first action", steps[0].Text)
	assert.Equal(t, "second action", steps[1].Text)
	assert.Equal(t, "third action", steps[2].Text)
}

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "dot and paren numbering",
			text: "1. first\n2) second",
			want: []string{"first", "second"},
		},
		{
			name: "leading whitespace",
			text: "  1. indented step",
			want: []string{"indented step"},
		},
		{
			name: "carriage returns",
			text: "1. windows line\r\n2. another\r\n",
			want: []string{"windows line", "another"},
		},
		{
			name: "number without text dropped",
			text: "1.\n2.   \n3. kept",
			want: []string{"kept"},
		},
		{
			name: "unnumbered lines dropped",
			text: "first do this\nthen do that",
			want: nil,
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := parseSteps(tt.text)
			require.Len(t, steps, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, i+1, steps[i].Index)
				assert.Equal(t, want, steps[i].Text)
			}
		})
	}
}
