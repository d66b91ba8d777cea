package scorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultModel           = "gpt-4o-mini"
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

// LiveScorer asks an OpenAI-compatible chat model to judge relationships.
type LiveScorer struct {
	client      *openai.Client
	model       string
	temperature float32
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	log         logrus.FieldLogger
}

var (
	_ Scorer    = (*LiveScorer)(nil)
	_ Describer = (*LiveScorer)(nil)
)

// NewLiveScorer builds a LiveScorer. cfg.APIKey must be set.
func NewLiveScorer(cfg Config) *LiveScorer {
	return NewLiveScorerWithLogger(cfg, logrus.StandardLogger())
}

// NewLiveScorerWithLogger is NewLiveScorer with an explicit logger.
func NewLiveScorerWithLogger(cfg Config, log logrus.FieldLogger) *LiveScorer {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scorer-" + model,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("scorer circuit breaker state changed")
		},
		// A reply that cannot be parsed is the model's fault, not the endpoint's.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMalformedResponse) || errors.Is(err, context.Canceled)
		},
	})

	return &LiveScorer{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		temperature: cfg.Temperature,
		limiter:     limiter,
		breaker:     breaker,
		log:         log,
	}
}

func (l *LiveScorer) Name() string { return "openai" }

// ScorePair implements Scorer.
func (l *LiveScorer) ScorePair(ctx context.Context, a, b, topic string) (PairScore, error) {
	v, err := l.call(ctx, func(reply string) (any, error) {
		return parsePairScore(reply)
	}, pairPrompt(a, b, topic))
	if err != nil {
		return PairScore{}, err
	}
	return v.(PairScore), nil
}

// FindRelated implements Scorer.
func (l *LiveScorer) FindRelated(ctx context.Context, entity, topic string, maxCount int) ([]Candidate, error) {
	if maxCount <= 0 {
		return []Candidate{}, nil
	}
	v, err := l.call(ctx, func(reply string) (any, error) {
		return parseCandidates(reply)
	}, relatedPrompt(entity, topic, maxCount))
	if err != nil {
		return nil, err
	}
	return Truncate(v.([]Candidate), maxCount), nil
}

// Describe implements Describer.
func (l *LiveScorer) Describe(ctx context.Context, entity, topic string) (string, error) {
	v, err := l.call(ctx, func(reply string) (any, error) {
		reply = strings.TrimSpace(reply)
		if reply == "" {
			return nil, fmt.Errorf("%w: empty description", ErrMalformedResponse)
		}
		return reply, nil
	}, describePrompt(entity, topic))
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (l *LiveScorer) call(ctx context.Context, parse func(string) (any, error), prompt string) (any, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, classify(ctx, err)
		}
	}
	l.log.WithField("model", l.model).Debug("scorer request")
	v, err := l.breaker.Execute(func() (any, error) {
		resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       l.model,
			Temperature: l.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return nil, classify(ctx, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
		}
		return parse(resp.Choices[0].Message.Content)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return v, nil
}

// classify maps transport failures onto the scorer error kinds.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
