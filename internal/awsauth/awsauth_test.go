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

package awsauth

import "testing"

func TestRegionFromAuthorization(t *testing.T) {
	header := "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20150830/eu-west-1/kinesis/aws4_request, SignedHeaders=host;x-amz-date, Signature=abc"
	region, err := RegionFromAuthorization(header, "us-east-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if region != "eu-west-1" {
		t.Fatalf("got region %q, want eu-west-1", region)
	}
}

func TestRegionFromAuthorizationEmptyUsesDefault(t *testing.T) {
	region, err := RegionFromAuthorization("", "eu-central-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if region != "eu-central-1" {
		t.Fatalf("got region %q, want eu-central-1", region)
	}
}

func TestRegionFromAuthorizationMalformed(t *testing.T) {
	if _, err := RegionFromAuthorization("not a sigv4 header", "us-east-1"); err == nil {
		t.Fatal("expected error for malformed header")
	}
}

func TestTargetOperation(t *testing.T) {
	op, err := TargetOperation("Kinesis_20131202.PutRecord")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op != "PutRecord" {
		t.Fatalf("got op %q, want PutRecord", op)
	}
}

func TestTargetOperationMalformed(t *testing.T) {
	if _, err := TargetOperation("PutRecord"); err == nil {
		t.Fatal("expected error for missing dot separator")
	}
}
