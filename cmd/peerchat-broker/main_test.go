// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bureau-foundation/peerchat/transport"
)

func TestServerRelaysSignals(t *testing.T) {
	server := newServer(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	testServer := httptest.NewServer(server.Handler)
	defer testServer.Close()

	response, err := http.Get(testServer.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusNoContent {
		t.Fatalf("GET /healthz status = %d, want 204", response.StatusCode)
	}

	ctx := context.Background()
	signaler := transport.NewHTTPSignaler(testServer.URL, testServer.Client())
	offer := transport.Signal{From: "ALPHA001", To: "BETA0002", Session: "session-1", SDP: "v=0"}
	if err := signaler.PublishOffer(ctx, offer); err != nil {
		t.Fatalf("PublishOffer: %v", err)
	}

	offers, err := signaler.PollOffers(ctx, "BETA0002")
	if err != nil {
		t.Fatalf("PollOffers: %v", err)
	}
	if len(offers) != 1 || offers[0].Session != "session-1" || offers[0].SDP != "v=0" {
		t.Errorf("offers = %+v", offers)
	}
}
