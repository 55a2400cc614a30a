// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds reads of HTTP bodies exchanged with the
// signaling broker. An SDP with every candidate embedded is a few
// kilobytes; nothing on the broker API legitimately approaches
// MaxBodySize, so a larger body is a broken or hostile peer.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxBodySize bounds every broker request and response body: 1 MB.
const MaxBodySize int64 = 1 << 20

// DecodeResponse reads up to MaxBodySize bytes from body and
// JSON-decodes them into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxBodySize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody returns an error response body for use in a diagnostic
// message. Read errors are ignored; a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxBodySize))
	return string(data)
}
