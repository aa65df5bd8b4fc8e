package market

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/marketreel/marketreel/config"
)

const maxTickersPerRun = 15

type StoryType string

const (
	StoryNews      StoryType = "news"
	StoryTechnical StoryType = "technical"
)

// Story is what the rest of the pipeline narrates: either a ticker with
// a fresh headline, or an index trend derived from a month of closes.
type Story struct {
	Type       StoryType
	Title      string
	Name       string
	Symbol     string
	Script     string
	ArticleURL string
	Closes     []float64
}

// Picker walks the watchlist looking for news and falls back to an
// index trend. The function fields exist so tests can stub the network.
type Picker struct {
	QuoteFunc   func(ctx context.Context, symbol string) (*Quote, error)
	NewsFunc    func(ctx context.Context, symbol string) ([]NewsItem, error)
	HistoryFunc func(ctx context.Context, symbol, yahooRange string) ([]Candle, error)

	Watchlist []string
	Indices   []config.Index
}

func NewPicker(client *Client, settings config.Settings) *Picker {
	return &Picker{
		QuoteFunc:   client.Quote,
		NewsFunc:    client.News,
		HistoryFunc: client.History,
		Watchlist:   settings.Watchlist,
		Indices:     settings.Indices,
	}
}

// Pick returns the first story it can assemble, or an error when even
// the technical fallback has nothing to say.
func (p *Picker) Pick(ctx context.Context) (*Story, error) {
	if story := p.pickNewsStory(ctx); story != nil {
		return story, nil
	}

	logrus.Info("No fresh news on the watchlist, falling back to index analysis")

	story, err := p.pickTechnicalStory(ctx)
	if err != nil {
		return nil, err
	}
	return story, nil
}

func (p *Picker) pickNewsStory(ctx context.Context) *Story {
	shuffled := make([]string, len(p.Watchlist))
	copy(shuffled, p.Watchlist)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if len(shuffled) > maxTickersPerRun {
		shuffled = shuffled[:maxTickersPerRun]
	}

	for _, symbol := range shuffled {
		news, err := p.NewsFunc(ctx, symbol)
		if err != nil {
			logrus.WithError(err).WithField("symbol", symbol).Warn("News lookup failed")
			continue
		}
		if len(news) == 0 {
			continue
		}

		latest := news[0]

		quote, err := p.QuoteFunc(ctx, symbol)
		if err != nil {
			logrus.WithError(err).WithField("symbol", symbol).Warn("Quote lookup failed")
			continue
		}

		logrus.WithFields(logrus.Fields{
			"symbol":   symbol,
			"headline": latest.Title,
		}).Info("Found news story")

		return &Story{
			Type:       StoryNews,
			Title:      fmt.Sprintf("News_%s", symbol),
			Name:       quote.Name,
			Symbol:     symbol,
			Script:     newsScript(quote, latest),
			ArticleURL: latest.Link,
		}
	}

	return nil
}

func (p *Picker) pickTechnicalStory(ctx context.Context) (*Story, error) {
	target := p.Indices[rand.Intn(len(p.Indices))]

	candles, err := p.HistoryFunc(ctx, target.Symbol, "1mo")
	if err != nil {
		return nil, errors.Wrapf(err, "fetching history for %s", target.Name)
	}
	if len(candles) < 2 {
		return nil, errors.Errorf("not enough history for %s", target.Name)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	cur := decimal.NewFromFloat(closes[len(closes)-1])
	prev := decimal.NewFromFloat(closes[len(closes)-2])
	change := cur.Sub(prev)

	trend := "bearish"
	if change.IsPositive() {
		trend = "bullish"
	}

	pct := change.Div(prev).Mul(decimal.NewFromInt(100)).Round(2).Abs()

	logrus.WithFields(logrus.Fields{
		"index": target.Name,
		"trend": trend,
		"pct":   pct.String(),
	}).Info("Built technical story")

	return &Story{
		Type:   StoryTechnical,
		Title:  fmt.Sprintf("Technical_%s", target.Name),
		Name:   target.Name,
		Symbol: target.Symbol,
		Script: fmt.Sprintf("%s shows a %s move of %s%% today.", target.Name, trend, pct.String()),
		Closes: closes,
	}, nil
}

func newsScript(quote *Quote, item NewsItem) string {
	return fmt.Sprintf("Breaking update on %s. Current price %s rupees. %s.",
		quote.Name, quote.Price.String(), item.Title)
}
