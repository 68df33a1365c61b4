package wiki

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// PageSlim is the minimal page identity returned by list queries.
type PageSlim struct {
	ID        int    `json:"pageid"`
	Namespace int    `json:"ns"`
	Title     string `json:"title"`
}

// Pager walks a paginated list query, one result batch per call. The
// continuation token threads through sequentially; batches cannot be fetched
// in parallel without violating the request pacing contract.
type Pager struct {
	client      *Client
	params      url.Values
	continueKey string
	resultKey   string
	next        string
	done        bool
	calls       int
}

// Pages prepares a paginated query. continueKey names the continuation-token
// field (e.g. "apcontinue") and resultKey the list inside the query payload
// (e.g. "allpages").
func (c *Client) Pages(continueKey, resultKey string, params map[string]string) *Pager {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	values.Set("format", "json")

	return &Pager{
		client:      c,
		params:      values,
		continueKey: continueKey,
		resultKey:   resultKey,
	}
}

// Next fetches the next result batch. It returns ok=false once the source
// stops handing out continuation tokens, or on transport failure; a failure
// is logged, returned, and terminates the sequence without retrying.
func (p *Pager) Next(ctx context.Context) (json.RawMessage, bool, error) {
	if p.done {
		return nil, false, nil
	}

	params := url.Values{}
	for key, values := range p.params {
		params[key] = values
	}
	if p.next != "" {
		params.Set(p.continueKey, p.next)
	}

	var envelope queryEnvelope
	if err := p.client.get(ctx, params, &envelope); err != nil {
		p.done = true
		p.client.logError(logrus.Fields{
			"continue_key": p.continueKey,
			"result_key":   p.resultKey,
			"call":         p.calls,
		}, err, "paginated query failed, stopping early")
		return nil, false, eris.Wrapf(err, "fetching page batch %d", p.calls)
	}

	p.calls++
	p.next = envelope.Continue[p.continueKey]
	if p.next == "" {
		p.done = true
	}

	return envelope.Query[p.resultKey], true, nil
}

// QueryAllSlim drains a paginated list query into slim page records. On
// transport failure the pages gathered so far are returned alongside the
// error so callers can keep partial progress.
func (c *Client) QueryAllSlim(ctx context.Context, continueKey, resultKey string, params map[string]string) ([]PageSlim, error) {
	pager := c.Pages(continueKey, resultKey, params)

	var result []PageSlim
	for {
		batch, ok, err := pager.Next(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			return result, nil
		}
		if len(batch) == 0 {
			continue
		}

		var slims []PageSlim
		if err := json.Unmarshal(batch, &slims); err != nil {
			return result, eris.Wrapf(err, "decoding %s batch", resultKey)
		}
		result = append(result, slims...)
	}
}
