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

package kmodel

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws/arn"
)

// StreamARN builds the ARN for a stream. The shape matches what
// aws/arn.Parse expects back out, so clients that parse our responses
// with the real SDK succeed.
func StreamARN(region, accountID, streamName string) string {
	a := arn.ARN{
		Partition: "aws",
		Service:   "kinesis",
		Region:    region,
		AccountID: accountID,
		Resource:  "stream/" + streamName,
	}
	return a.String()
}

// ConsumerARN builds the ARN for a registered stream consumer.
func ConsumerARN(streamARN, consumerName string, creationEpoch int64) string {
	return fmt.Sprintf("%s/consumer/%s:%d", streamARN, consumerName, creationEpoch)
}

// StreamNameFromARN extracts the stream name from a stream or consumer
// ARN, returning an error if the ARN does not belong to Kinesis.
func StreamNameFromARN(streamARN string) (string, error) {
	parsed, err := arn.Parse(streamARN)
	if err != nil {
		return "", err
	}
	if parsed.Service != "kinesis" {
		return "", fmt.Errorf("not a kinesis arn: %s", streamARN)
	}
	resource := strings.TrimPrefix(parsed.Resource, "stream/")
	if idx := strings.Index(resource, "/consumer/"); idx >= 0 {
		resource = resource[:idx]
	}
	return resource, nil
}
