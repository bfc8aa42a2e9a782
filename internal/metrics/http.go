package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/httpclient"
	"github.com/flexprice/revenue/internal/logger"
	"github.com/flexprice/revenue/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

type metricValueResponse struct {
	Value *decimal.Decimal `json:"value"`
}

type entitiesResponse struct {
	IDs []string `json:"ids"`
}

type entityNameResponse struct {
	Name string `json:"name"`
}

// HTTPProvider reads metrics from a remote metrics service.
// A 404 from the service means the value is absent.
type HTTPProvider struct {
	baseURL string
	client  httpclient.Client
	logger  *logger.Logger
	limiter *rate.Limiter
}

func NewHTTPProvider(baseURL string, client httpclient.Client, log *logger.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  log,
	}
}

func (p *HTTPProvider) MetricValue(ctx context.Context, key, entityID string, period types.TimePeriod) (*decimal.Decimal, error) {
	query := url.Values{}
	query.Set("entity", entityID)
	query.Set("from", types.FormatTime(period.Start))
	query.Set("to", types.FormatTime(period.End))

	var resp metricValueResponse
	found, err := p.get(ctx, fmt.Sprintf("/metrics/%s", url.PathEscape(key)), query, &resp)
	if err != nil || !found {
		return nil, err
	}
	return resp.Value, nil
}

func (p *HTTPProvider) DistinctEntities(ctx context.Context, iterationKey, anchorEntityID string, period types.TimePeriod) ([]string, error) {
	query := url.Values{}
	query.Set("anchor", anchorEntityID)
	query.Set("from", types.FormatTime(period.Start))
	query.Set("to", types.FormatTime(period.End))

	var resp entitiesResponse
	found, err := p.get(ctx, fmt.Sprintf("/entities/%s", url.PathEscape(iterationKey)), query, &resp)
	if err != nil || !found {
		return nil, err
	}
	return resp.IDs, nil
}

func (p *HTTPProvider) EntityDisplayName(ctx context.Context, entityID string) (string, error) {
	var resp entityNameResponse
	found, err := p.get(ctx, fmt.Sprintf("/entities/%s/name", url.PathEscape(entityID)), nil, &resp)
	if err != nil {
		return "", err
	}
	if !found || resp.Name == "" {
		return entityID, nil
	}
	return resp.Name, nil
}

// WithRateLimit caps the provider at rps requests per second, zero or less
// removes the cap
func (p *HTTPProvider) WithRateLimit(rps float64) *HTTPProvider {
	if rps <= 0 {
		p.limiter = nil
		return p
	}
	p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return p
}

// get fetches path and decodes the body into out. It returns false when the
// resource does not exist.
func (p *HTTPProvider) get(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	target := p.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	resp, err := p.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodGet,
		URL:     target,
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		if httpclient.IsNotFound(err) {
			p.logger.Debugw("metrics service has no data", "url", target)
			return false, nil
		}
		return false, ierr.WithError(err).
			WithHint("Metrics service request failed").
			WithReportableDetails(map[string]any{
				"url": target,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	if len(resp.Body) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return false, ierr.WithError(err).
			WithHint("Metrics service returned an unreadable payload").
			WithReportableDetails(map[string]any{
				"url": target,
			}).
			Mark(ierr.ErrHTTPClient)
	}
	return true, nil
}
