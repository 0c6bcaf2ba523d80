package synthesis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/services"
	"github.com/upb/recipe-api/services/providers"
	"go.uber.org/zap"
)

// MockGenerator is a mock implementation of providers.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Name() string { return "mock" }

func (m *MockGenerator) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.GenerationResponse), args.Error(1)
}

func (m *MockGenerator) IsAvailable(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

var testRecords = []models.Recipe{
	{Title: "Pesto", Ingredients: []string{"basil"}, Directions: "Blend basil with oil."},
	{Title: "Bruschetta", Ingredients: []string{"tomato"}, Directions: "Top toast with tomato."},
}

func TestNewSynthesizer_Defaults(t *testing.T) {
	s := NewSynthesizer(&MockGenerator{}, nil, Config{}, zap.NewNop())

	cfg := s.Config()
	assert.Equal(t, 512, cfg.MaxInputTokens)
	assert.Equal(t, 300, cfg.MaxNewTokens)
	assert.Equal(t, "<|endoftext|>", cfg.StopToken)
	assert.Equal(t, int64(4), cfg.MaxConcurrency)
	assert.Positive(t, cfg.Timeout)
}

func TestSynthesizer_BuildRequest(t *testing.T) {
	s := NewSynthesizer(&MockGenerator{}, nil, DefaultConfig(), zap.NewNop())

	t.Run("generation parameters", func(t *testing.T) {
		req, err := s.BuildRequest(testRecords, "basil, tomato", []string{"vegan"}, 0)
		require.NoError(t, err)

		assert.Equal(t, 300, req.MaxNewTokens)
		assert.Equal(t, 0.7, req.Temperature)
		assert.Equal(t, 50, req.TopK)
		assert.Equal(t, 0.9, req.TopP)
		assert.True(t, req.DoSample)
		assert.Equal(t, "<|endoftext|>", req.StopToken)
		assert.Contains(t, req.Prompt, "Pesto: Blend basil with oil. Bruschetta: Top toast with tomato.")
		assert.Contains(t, req.Prompt, "basil, tomato")
	})

	t.Run("explicit max new tokens", func(t *testing.T) {
		req, err := s.BuildRequest(testRecords, "basil", nil, 120)
		require.NoError(t, err)
		assert.Equal(t, 120, req.MaxNewTokens)
	})

	t.Run("blank ingredients", func(t *testing.T) {
		_, err := s.BuildRequest(testRecords, "   ", nil, 0)
		assert.ErrorIs(t, err, services.ErrEmptyIngredients)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("negative max new tokens", func(t *testing.T) {
		_, err := s.BuildRequest(testRecords, "basil", nil, -1)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("oversized preferences stay within the input budget", func(t *testing.T) {
		preferences := make([]string, 2000)
		for i := range preferences {
			preferences[i] = "spicy"
		}

		req, err := s.BuildRequest(testRecords[:1], "basil", preferences, 0)
		require.NoError(t, err)

		assert.LessOrEqual(t, NewWordTokenizer().Count(req.Prompt), 512)
		assert.Contains(t, req.Prompt, "the following ingredients: basil.")
		assert.True(t, strings.HasSuffix(req.Prompt, "Response:"))
	})

	t.Run("no records", func(t *testing.T) {
		req, err := s.BuildRequest(nil, "basil", nil, 0)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(req.Prompt, "Context:\n\n\n"))
	})
}

func TestSynthesizer_Synthesize(t *testing.T) {
	t.Run("success cleans output", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.MatchedBy(func(req *providers.GenerationRequest) bool {
			return strings.HasSuffix(req.Prompt, "Response:") && req.MaxNewTokens == 300
		})).Return(&providers.GenerationResponse{Text: "  Toss basil with pasta.<|endoftext|>"}, nil)

		s := NewSynthesizer(gen, nil, DefaultConfig(), zap.NewNop())
		out, err := s.Synthesize(context.Background(), testRecords, "basil", nil, 0)

		require.NoError(t, err)
		assert.Equal(t, "Toss basil with pasta.", out)
		gen.AssertExpectations(t)
	})

	t.Run("backend error is a generation failure", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).
			Return(nil, errors.New("CUDA out of memory"))

		s := NewSynthesizer(gen, nil, DefaultConfig(), zap.NewNop())
		_, err := s.Synthesize(context.Background(), testRecords, "basil", nil, 0)

		require.Error(t, err)
		assert.ErrorIs(t, err, services.ErrGenerationFailed)
	})

	t.Run("timeout is a generation failure", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return(nil, context.DeadlineExceeded)

		cfg := DefaultConfig()
		cfg.Timeout = 20 * time.Millisecond
		s := NewSynthesizer(gen, nil, cfg, zap.NewNop())

		_, err := s.Synthesize(context.Background(), testRecords, "basil", nil, 0)
		assert.True(t, services.IsGenerationError(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("validation happens before the backend is called", func(t *testing.T) {
		gen := new(MockGenerator)
		s := NewSynthesizer(gen, nil, DefaultConfig(), zap.NewNop())

		_, err := s.Synthesize(context.Background(), testRecords, "", nil, 0)
		assert.True(t, services.IsValidationError(err))
		gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})
}

// blockingGenerator records the peak number of concurrent calls
type blockingGenerator struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	release  chan struct{}
}

func (b *blockingGenerator) Name() string { return "blocking" }

func (b *blockingGenerator) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResponse, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &providers.GenerationResponse{Text: "ok"}, nil
}

func (b *blockingGenerator) IsAvailable(ctx context.Context) bool { return true }

func TestSynthesizer_BoundsConcurrency(t *testing.T) {
	gen := &blockingGenerator{release: make(chan struct{})}
	cfg := DefaultConfig()
	cfg.MaxConcurrency = 2
	s := NewSynthesizer(gen, nil, cfg, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Synthesize(context.Background(), testRecords, "basil", nil, 0)
		}()
	}

	assert.Eventually(t, func() bool { return gen.peak.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(gen.release)
	wg.Wait()

	assert.Equal(t, int32(2), gen.peak.Load())
}
