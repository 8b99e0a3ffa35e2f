/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package punch

import (
	"fmt"
	"net"

	"github.com/carverauto/punchsync/pkg/logger"
	"github.com/carverauto/punchsync/pkg/models"
)

// NetworkBlacklist excludes devices whose address falls in listed CIDRs.
type NetworkBlacklist struct {
	networks []*net.IPNet
	logger   logger.Logger
}

func NewNetworkBlacklist(cidrs []string, log logger.Logger) (*NetworkBlacklist, error) {
	nb := &NetworkBlacklist{
		networks: make([]*net.IPNet, 0, len(cidrs)),
		logger:   log,
	}

	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %s: %w", cidr, err)
		}

		nb.networks = append(nb.networks, network)
	}

	return nb, nil
}

// IsBlacklisted reports whether ip is inside a blacklisted range. Hostnames
// never match.
func (nb *NetworkBlacklist) IsBlacklisted(ip string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, network := range nb.networks {
		if network.Contains(parsedIP) {
			return true
		}
	}

	return false
}

// FilterEndpoints drops blacklisted endpoints, preserving order.
func (nb *NetworkBlacklist) FilterEndpoints(endpoints []models.DeviceEndpoint) []models.DeviceEndpoint {
	if nb == nil || len(nb.networks) == 0 {
		return endpoints
	}

	filtered := make([]models.DeviceEndpoint, 0, len(endpoints))

	for _, ep := range endpoints {
		if nb.IsBlacklisted(ep.IP) {
			nb.logger.Info().
				Str("device", ep.DisplayName()).
				Str("ip", ep.IP).
				Msg("Skipping device in blacklisted network")

			continue
		}

		filtered = append(filtered, ep)
	}

	return filtered
}
