// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/peerchat/lib/config"
)

// ICEConfig holds the ICE servers used for new PeerConnections.
type ICEConfig struct {
	// Servers is tried in order during candidate gathering.
	Servers []webrtc.ICEServer
}

// ICEConfigFromConfig converts the configured STUN/TURN servers into
// pion ICE server entries. Servers without URLs are skipped.
func ICEConfigFromConfig(servers []config.ICEServer) ICEConfig {
	var iceConfig ICEConfig
	for _, server := range servers {
		if len(server.URLs) == 0 {
			continue
		}
		entry := webrtc.ICEServer{URLs: server.URLs}
		if server.Username != "" {
			entry.Username = server.Username
			entry.Credential = server.Credential
		}
		iceConfig.Servers = append(iceConfig.Servers, entry)
	}
	return iceConfig
}
