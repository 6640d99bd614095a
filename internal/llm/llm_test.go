package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/fyrsmithlabs/uipilot/internal/config"
)

// mockModel implements llms.Model for testing.
type mockModel struct {
	mock.Mock
}

func (m *mockModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	args := m.Called(ctx, messages)
	if resp := args.Get(0); resp != nil {
		return resp.(*llms.ContentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func contentResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

func testClient(t *testing.T, model llms.Model) *OpenAI {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIKey = config.Secret("sk-test00000000")
	cfg.RequestsPerMinute = 0 // No limiter delays in tests
	c := newOpenAI(cfg, model, nil)
	c.backoff = time.Millisecond
	return c
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gpt-4", cfg.Model)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.Equal(t, 30, cfg.RequestsPerMinute)
	assert.Equal(t, 2, cfg.MaxRetries)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.APIKey = config.Secret("sk-test00000000")
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing api key", func(c *Config) { c.APIKey = "" }, "api key required"},
		{"missing model", func(c *Config) { c.Model = "" }, "model required"},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, "temperature out of range"},
		{"temperature negative", func(c *Config) { c.Temperature = -0.1 }, "temperature out of range"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max retries cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewOpenAI_MissingAPIKey(t *testing.T) {
	cfg := DefaultConfig()

	client, err := NewOpenAI(cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, client)
}

func TestOpenAI_Generate(t *testing.T) {
	model := &mockModel{}
	model.On("GenerateContent", mock.Anything, mock.Anything).
		Return(contentResponse("1. Open Settings app\n2. Enable Airplane Mode"), nil).Once()

	client := testClient(t, model)

	text, err := client.Generate(context.Background(), "plan this")
	require.NoError(t, err)
	assert.Contains(t, text, "1. Open Settings app")
	model.AssertExpectations(t)
}

func TestOpenAI_Generate_EmptyPrompt(t *testing.T) {
	model := &mockModel{}
	client := testClient(t, model)

	_, err := client.Generate(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	model.AssertNumberOfCalls(t, "GenerateContent", 0)
}

func TestOpenAI_Generate_RetriesThenSucceeds(t *testing.T) {
	model := &mockModel{}
	model.On("GenerateContent", mock.Anything, mock.Anything).
		Return(nil, errors.New("temporary upstream blip")).Once()
	model.On("GenerateContent", mock.Anything, mock.Anything).
		Return(contentResponse("1. step"), nil).Once()

	client := testClient(t, model)

	text, err := client.Generate(context.Background(), "plan this")
	require.NoError(t, err)
	assert.Equal(t, "1. step", text)
	model.AssertNumberOfCalls(t, "GenerateContent", 2)
}

func TestOpenAI_Generate_ExhaustsRetries(t *testing.T) {
	model := &mockModel{}
	model.On("GenerateContent", mock.Anything, mock.Anything).
		Return(nil, errors.New("upstream down"))

	client := testClient(t, model)

	_, err := client.Generate(context.Background(), "plan this")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)

	// Initial call plus MaxRetries retries.
	model.AssertNumberOfCalls(t, "GenerateContent", client.config.MaxRetries+1)
}

func TestOpenAI_Generate_ContextCanceled(t *testing.T) {
	model := &mockModel{}
	client := testClient(t, model)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, "plan this")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	model.AssertNumberOfCalls(t, "GenerateContent", 0)
}

func TestOpenAI_Generate_CancelStopsRetries(t *testing.T) {
	model := &mockModel{}
	ctx, cancel := context.WithCancel(context.Background())
	model.On("GenerateContent", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, errors.New("upstream down")).Once()

	client := testClient(t, model)
	// A long backoff guarantees the cancelled context wins the retry wait.
	client.backoff = time.Minute

	_, err := client.Generate(ctx, "plan this")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	model.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestOpenAI_Generate_EmptyChoices(t *testing.T) {
	model := &mockModel{}
	model.On("GenerateContent", mock.Anything, mock.Anything).
		Return(&llms.ContentResponse{}, nil)

	client := testClient(t, model)

	_, err := client.Generate(context.Background(), "plan this")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(context.DeadlineExceeded))
	assert.True(t, isRetryable(errors.New("rate limited (429)")))
}
