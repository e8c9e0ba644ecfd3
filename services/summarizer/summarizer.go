// Package summarizer calls the external text-generation API that drafts
// interview summaries from a score breakdown.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/remshq/rems/core"
	"github.com/remshq/rems/core/interview"
)

type httpService struct {
	url    string
	key    string
	client *http.Client
	logger core.Logger
}

var _ interview.Summarizer = (*httpService)(nil)

func NewHTTPService(conf *core.Config, logger core.Logger) *httpService {
	return &httpService{
		url:    conf.SummarizerURL,
		key:    conf.SummarizerAPIKey,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type summaryResponse struct {
	Text string `json:"text"`
}

func (svc httpService) Summarize(ctx context.Context, req interview.SummaryRequest) (string, error) {
	if svc.url == "" {
		return "", errors.New("summarizer is not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "encoding summary request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building summary request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if svc.key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+svc.key)
	}

	res, err := svc.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "calling summarizer")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<12))
		svc.logger.Error("summarizer error", map[string]interface{}{
			"status": res.StatusCode, "body": string(raw),
		})
		return "", errors.Errorf("summarizer returned status %d", res.StatusCode)
	}

	var parsed summaryResponse
	if err = json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(err, "decoding summary response")
	}
	return parsed.Text, nil
}
