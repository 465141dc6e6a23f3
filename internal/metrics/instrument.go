package metrics

import (
	"context"

	"github.com/perceptra/braingym/internal/game"
)

// InstrumentRecorder counts finished rounds by mode and status on their way
// to the store.
func InstrumentRecorder(next game.Recorder) game.Recorder {
	return &recorder{next: next}
}

type recorder struct {
	next game.Recorder
}

func (r *recorder) SaveRound(ctx context.Context, rec *game.Record) error {
	RoundsFinished.WithLabelValues(string(rec.Mode), string(rec.Status)).Inc()
	return r.next.SaveRound(ctx, rec)
}

// InstrumentProvider counts provider failures per operation.
func InstrumentProvider(next game.Provider) game.Provider {
	return &provider{next: next}
}

type provider struct {
	next game.Provider
}

func (p *provider) countErr(op string, err error) {
	if err != nil {
		ProviderErrors.WithLabelValues(op).Inc()
	}
}

func (p *provider) GenerateComparison(ctx context.Context, subject string) (*game.ComparisonContent, error) {
	c, err := p.next.GenerateComparison(ctx, subject)
	p.countErr("generate_comparison", err)
	return c, err
}

func (p *provider) GenerateAnomaly(ctx context.Context, subject string) (*game.AnomalyContent, error) {
	a, err := p.next.GenerateAnomaly(ctx, subject)
	p.countErr("generate_anomaly", err)
	return a, err
}

func (p *provider) GenerateLogic(ctx context.Context, topic string) (*game.LogicContent, error) {
	l, err := p.next.GenerateLogic(ctx, topic)
	p.countErr("generate_logic", err)
	return l, err
}

func (p *provider) VerifyComparison(ctx context.Context, c *game.ComparisonContent, guess string, found []string) (game.Verdict, error) {
	v, err := p.next.VerifyComparison(ctx, c, guess, found)
	p.countErr("verify_comparison", err)
	return v, err
}

func (p *provider) VerifyAnomaly(ctx context.Context, a *game.AnomalyContent, guess string, found []string) (game.Verdict, error) {
	v, err := p.next.VerifyAnomaly(ctx, a, guess, found)
	p.countErr("verify_anomaly", err)
	return v, err
}

func (p *provider) VerifyLogic(ctx context.Context, question, guess string) (game.Verdict, error) {
	v, err := p.next.VerifyLogic(ctx, question, guess)
	p.countErr("verify_logic", err)
	return v, err
}

func (p *provider) ListDifferences(ctx context.Context, c *game.ComparisonContent) ([]game.RevealedItem, error) {
	items, err := p.next.ListDifferences(ctx, c)
	p.countErr("list_differences", err)
	return items, err
}

func (p *provider) ListAnomalies(ctx context.Context, a *game.AnomalyContent) ([]game.RevealedItem, error) {
	items, err := p.next.ListAnomalies(ctx, a)
	p.countErr("list_anomalies", err)
	return items, err
}
