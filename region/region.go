// Copyright 2023 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

// Package region maps request origin IPs to cloud regions so that
// artifact downloads from workers in the same region as the backing
// bucket can skip the CDN and fetch directly.
package region

import (
	"net"
	"net/netip"
	"strings"

	"github.com/pkg/errors"
)

// Resolver resolves the cloud region a request originates from based
// on a static table of CIDR ranges.
type Resolver struct {
	prefixes []prefixRegion
}

type prefixRegion struct {
	prefix netip.Prefix
	region string
}

// NewResolver builds a Resolver from "CIDR=region" pairs.
func NewResolver(ranges []string) (*Resolver, error) {
	r := &Resolver{
		prefixes: make([]prefixRegion, 0, len(ranges)),
	}
	for _, entry := range ranges {
		cidr, region, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, errors.Errorf(
				"region: invalid range %q, expecting CIDR=region", entry,
			)
		}
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			return nil, errors.WithMessagef(err, "region: invalid range %q", entry)
		}
		r.prefixes = append(r.prefixes, prefixRegion{
			prefix: prefix.Masked(),
			region: strings.TrimSpace(region),
		})
	}
	return r, nil
}

// Lookup returns the region the request IP belongs to, or the empty
// string when the IP falls outside all configured ranges. The first
// hop of forwardedFor takes precedence over remoteAddr, matching the
// address of the client rather than the load balancer.
func (r *Resolver) Lookup(remoteAddr, forwardedFor string) string {
	ip, ok := requestIP(remoteAddr, forwardedFor)
	if !ok {
		return ""
	}
	for _, p := range r.prefixes {
		if p.prefix.Contains(ip) {
			return p.region
		}
	}
	return ""
}

func requestIP(remoteAddr, forwardedFor string) (netip.Addr, bool) {
	addr := remoteAddr
	if forwardedFor != "" {
		addr, _, _ = strings.Cut(forwardedFor, ",")
		addr = strings.TrimSpace(addr)
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip.Unmap(), true
}
