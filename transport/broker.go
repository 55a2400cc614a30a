// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bureau-foundation/peerchat/lib/netutil"
)

// Broker serves a MemorySignaler over HTTP so endpoints on different
// machines can exchange offers and answers:
//
//	POST   /v1/offers                        publish an offer (JSON Signal)
//	POST   /v1/answers                       publish an answer (JSON Signal)
//	GET    /v1/offers/{identity}             claim offers addressed to identity
//	DELETE /v1/offers/{from}/{to}/{session}  withdraw an unclaimed offer
//	GET    /v1/answers/{identity}/{session}  claim one answer, 204 if none yet
//	GET    /healthz                          liveness probe
//
// The broker only relays session descriptions. It never sees chat
// text, which flows directly between the peers.
type Broker struct {
	signals *MemorySignaler
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewBroker returns a Broker backed by signals.
func NewBroker(signals *MemorySignaler, logger *slog.Logger) *Broker {
	broker := &Broker{
		signals: signals,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	broker.mux.HandleFunc("POST /v1/offers", broker.handlePublishOffer)
	broker.mux.HandleFunc("POST /v1/answers", broker.handlePublishAnswer)
	broker.mux.HandleFunc("GET /v1/offers/{identity}", broker.handlePollOffers)
	broker.mux.HandleFunc("DELETE /v1/offers/{from}/{to}/{session}", broker.handleWithdrawOffer)
	broker.mux.HandleFunc("GET /v1/answers/{identity}/{session}", broker.handlePollAnswer)
	broker.mux.HandleFunc("GET /healthz", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})
	return broker
}

func (b *Broker) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	b.mux.ServeHTTP(writer, request)
}

func (b *Broker) handlePublishOffer(writer http.ResponseWriter, request *http.Request) {
	signal, ok := b.decodeSignal(writer, request)
	if !ok {
		return
	}
	if err := b.signals.PublishOffer(request.Context(), signal); err != nil {
		b.writeError(writer, err)
		return
	}
	b.logger.Debug("offer stored", "from", signal.From, "to", signal.To)
	writer.WriteHeader(http.StatusAccepted)
}

func (b *Broker) handlePublishAnswer(writer http.ResponseWriter, request *http.Request) {
	signal, ok := b.decodeSignal(writer, request)
	if !ok {
		return
	}
	if err := b.signals.PublishAnswer(request.Context(), signal); err != nil {
		b.writeError(writer, err)
		return
	}
	b.logger.Debug("answer stored", "from", signal.From, "to", signal.To)
	writer.WriteHeader(http.StatusAccepted)
}

func (b *Broker) handlePollOffers(writer http.ResponseWriter, request *http.Request) {
	offers, err := b.signals.PollOffers(request.Context(), request.PathValue("identity"))
	if err != nil {
		b.writeError(writer, err)
		return
	}
	if offers == nil {
		offers = []Signal{}
	}
	b.writeJSON(writer, offers)
}

func (b *Broker) handleWithdrawOffer(writer http.ResponseWriter, request *http.Request) {
	from, to := request.PathValue("from"), request.PathValue("to")
	if err := b.signals.WithdrawOffer(request.Context(), from, to, request.PathValue("session")); err != nil {
		b.writeError(writer, err)
		return
	}
	b.logger.Debug("offer withdrawn", "from", from, "to", to)
	writer.WriteHeader(http.StatusNoContent)
}

func (b *Broker) handlePollAnswer(writer http.ResponseWriter, request *http.Request) {
	answer, found, err := b.signals.PollAnswer(request.Context(),
		request.PathValue("identity"), request.PathValue("session"))
	if err != nil {
		b.writeError(writer, err)
		return
	}
	if !found {
		writer.WriteHeader(http.StatusNoContent)
		return
	}
	b.writeJSON(writer, answer)
}

func (b *Broker) decodeSignal(writer http.ResponseWriter, request *http.Request) (Signal, bool) {
	var signal Signal
	body := http.MaxBytesReader(writer, request.Body, netutil.MaxBodySize)
	if err := json.NewDecoder(body).Decode(&signal); err != nil {
		http.Error(writer, "malformed signal: "+err.Error(), http.StatusBadRequest)
		return Signal{}, false
	}
	return signal, true
}

func (b *Broker) writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(value); err != nil {
		b.logger.Warn("writing broker response failed", "error", err)
	}
}

func (b *Broker) writeError(writer http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidSignal) {
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}
	b.logger.Error("broker request failed", "error", err)
	http.Error(writer, "internal error", http.StatusInternalServerError)
}
