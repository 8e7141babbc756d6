// Copyright 2015-2018 trivago N.V.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package awsauth extracts routing information from an incoming
// request's SigV4 Authorization header, the way a real regional
// Kinesis endpoint is reached by DNS name instead - this mock is one
// process serving every region, so the region has to come from
// somewhere else in the request. It never verifies the signature:
// this engine has no real credentials to check it against, so any
// well-formed SigV4 header is accepted and only read for routing.
package awsauth

import (
	"fmt"
	"strings"
)

// RegionFromAuthorization extracts the region component of a SigV4
// Authorization header's credential scope:
//
//	AWS4-HMAC-SHA256 Credential=AKID/20150830/us-east-1/kinesis/aws4_request, ...
//
// Returns defaultRegion if header is empty, and an error if it is
// present but doesn't parse as SigV4.
func RegionFromAuthorization(header, defaultRegion string) (string, error) {
	if header == "" {
		return defaultRegion, nil
	}

	const marker = "Credential="
	idx := strings.Index(header, marker)
	if idx < 0 {
		return "", fmt.Errorf("awsauth: missing Credential in Authorization header")
	}
	rest := header[idx+len(marker):]
	if comma := strings.IndexByte(rest, ','); comma >= 0 {
		rest = rest[:comma]
	}
	rest = strings.TrimSpace(rest)

	parts := strings.Split(rest, "/")
	if len(parts) != 5 {
		return "", fmt.Errorf("awsauth: malformed credential scope %q", rest)
	}
	return parts[2], nil
}

// TargetOperation splits the X-Amz-Target header, e.g.
// "Kinesis_20131202.PutRecord", into its operation name.
func TargetOperation(header string) (string, error) {
	idx := strings.LastIndexByte(header, '.')
	if idx < 0 || idx == len(header)-1 {
		return "", fmt.Errorf("awsauth: malformed X-Amz-Target %q", header)
	}
	return header[idx+1:], nil
}
