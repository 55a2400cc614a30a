// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bureau-foundation/peerchat/lib/netutil"
)

// brokerRequestTimeout bounds each call to the broker.
const brokerRequestTimeout = 10 * time.Second

var _ Signaler = (*HTTPSignaler)(nil)

// HTTPSignaler is a Signaler that talks to a Broker.
type HTTPSignaler struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSignaler returns a client for the broker at baseURL (for
// example "http://127.0.0.1:9010"). A nil client gets a default with
// brokerRequestTimeout.
func NewHTTPSignaler(baseURL string, client *http.Client) *HTTPSignaler {
	if client == nil {
		client = &http.Client{Timeout: brokerRequestTimeout}
	}
	return &HTTPSignaler{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *HTTPSignaler) PublishOffer(ctx context.Context, offer Signal) error {
	if err := s.post(ctx, "/v1/offers", offer); err != nil {
		return fmt.Errorf("publishing offer to %s: %w", offer.To, err)
	}
	return nil
}

func (s *HTTPSignaler) PublishAnswer(ctx context.Context, answer Signal) error {
	if err := s.post(ctx, "/v1/answers", answer); err != nil {
		return fmt.Errorf("publishing answer to %s: %w", answer.To, err)
	}
	return nil
}

func (s *HTTPSignaler) PollOffers(ctx context.Context, identity string) ([]Signal, error) {
	response, err := s.get(ctx, "/v1/offers/"+url.PathEscape(identity))
	if err != nil {
		return nil, fmt.Errorf("polling offers: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polling offers: broker returned %s: %s",
			response.Status, netutil.ErrorBody(response.Body))
	}
	var offers []Signal
	if err := netutil.DecodeResponse(response.Body, &offers); err != nil {
		return nil, fmt.Errorf("decoding offers: %w", err)
	}
	return offers, nil
}

func (s *HTTPSignaler) WithdrawOffer(ctx context.Context, from, to, session string) error {
	path := "/v1/offers/" + url.PathEscape(from) + "/" + url.PathEscape(to) + "/" + url.PathEscape(session)
	request, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("withdrawing offer to %s: %w", to, err)
	}
	response, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("withdrawing offer to %s: %w", to, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusNoContent {
		return fmt.Errorf("withdrawing offer to %s: broker returned %s: %s",
			to, response.Status, netutil.ErrorBody(response.Body))
	}
	return nil
}

func (s *HTTPSignaler) PollAnswer(ctx context.Context, identity, session string) (Signal, bool, error) {
	response, err := s.get(ctx, "/v1/answers/"+url.PathEscape(identity)+"/"+url.PathEscape(session))
	if err != nil {
		return Signal{}, false, fmt.Errorf("polling answer: %w", err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusNoContent:
		return Signal{}, false, nil
	case http.StatusOK:
		var answer Signal
		if err := netutil.DecodeResponse(response.Body, &answer); err != nil {
			return Signal{}, false, fmt.Errorf("decoding answer: %w", err)
		}
		return answer, true, nil
	default:
		return Signal{}, false, fmt.Errorf("polling answer: broker returned %s: %s",
			response.Status, netutil.ErrorBody(response.Body))
	}
}

func (s *HTTPSignaler) post(ctx context.Context, path string, signal Signal) error {
	body, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("encoding signal: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusAccepted {
		return fmt.Errorf("broker returned %s: %s", response.Status, netutil.ErrorBody(response.Body))
	}
	return nil
}

func (s *HTTPSignaler) get(ctx context.Context, path string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return s.client.Do(request)
}
