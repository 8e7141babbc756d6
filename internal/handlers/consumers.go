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

package handlers

import (
	"sort"
	"strings"

	"github.com/trivago/kinesis-mock/internal/kerrors"
	"github.com/trivago/kinesis-mock/internal/kmodel"
)

func toConsumerDescription(c *kmodel.Consumer) ConsumerDescription {
	return ConsumerDescription{
		ConsumerName:              c.ConsumerName,
		ConsumerARN:               c.ConsumerARN,
		ConsumerStatus:            string(c.ConsumerStatus),
		ConsumerCreationTimestamp: c.ConsumerCreationTimestamp,
		StreamARN:                 c.StreamARN,
	}
}

// RegisterStreamConsumer registers an enhanced-fan-out consumer
// against a stream, immediately ACTIVE since this engine has no
// meaningful provisioning delay for consumer registration.
func (h *Handlers) RegisterStreamConsumer(region string, in RegisterStreamConsumerInput) (*RegisterStreamConsumerOutput, error) {
	var fe kerrors.FieldErrors
	if in.ConsumerName == "" {
		fe.Addf("ConsumerName: is required")
	}
	if len(in.ConsumerName) > 128 {
		fe.Addf("ConsumerName: must be no more than 128 characters")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	name, err := kmodel.StreamNameFromARN(in.StreamARN)
	if err != nil {
		return nil, kerrors.New(kerrors.InvalidArgument, "StreamARN is malformed")
	}

	s := h.engine.Region(region)
	var out *RegisterStreamConsumerOutput
	var opErr error
	s.Update(func(streams map[string]*kmodel.Stream) {
		st, err := requireNotDeleting(streams, name)
		if err != nil {
			opErr = err
			return
		}
		if len(st.Consumers) >= maxConsumerCount {
			opErr = kerrors.New(kerrors.LimitExceeded, "Stream %s has reached its consumer limit.", name)
			return
		}
		if _, exists := st.Consumers[in.ConsumerName]; exists {
			opErr = kerrors.New(kerrors.ResourceInUse, "Consumer %s is already registered on stream %s.", in.ConsumerName, name)
			return
		}

		now := h.engine.Now()
		consumer := &kmodel.Consumer{
			ConsumerName:              in.ConsumerName,
			ConsumerARN:               kmodel.ConsumerARN(st.StreamARN, in.ConsumerName, now.Unix()),
			ConsumerStatus:            kmodel.ConsumerStatusActive,
			ConsumerCreationTimestamp: now,
			StreamARN:                 st.StreamARN,
		}
		st.Consumers[in.ConsumerName] = consumer
		out = &RegisterStreamConsumerOutput{Consumer: toConsumerDescription(consumer)}
	})
	return out, opErr
}

// DeregisterStreamConsumer removes a consumer registration.
func (h *Handlers) DeregisterStreamConsumer(region string, in DeregisterStreamConsumerInput) error {
	consumerName := in.ConsumerName
	streamARN := in.StreamARN
	if in.ConsumerARN != "" {
		consumerName = consumerNameFromARN(in.ConsumerARN)
		streamARN = in.ConsumerARN
	}

	name, err := kmodel.StreamNameFromARN(streamARN)
	if err != nil {
		return kerrors.New(kerrors.InvalidArgument, "StreamARN is malformed")
	}
	if consumerName == "" {
		return kerrors.New(kerrors.InvalidArgument, "ConsumerName or ConsumerARN is required")
	}

	s := h.engine.Region(region)
	var opErr error
	s.Update(func(streams map[string]*kmodel.Stream) {
		st, err := requireNotDeleting(streams, name)
		if err != nil {
			opErr = err
			return
		}
		if _, exists := st.Consumers[consumerName]; !exists {
			opErr = kerrors.New(kerrors.ResourceNotFound, "Consumer %s not found on stream %s.", consumerName, name)
			return
		}
		delete(st.Consumers, consumerName)
	})
	return opErr
}

// consumerNameFromARN extracts the consumer name from a consumer ARN
// of the shape produced by kmodel.ConsumerARN: ".../consumer/<name>:<epoch>".
func consumerNameFromARN(consumerARN string) string {
	const marker = "/consumer/"
	idx := strings.Index(consumerARN, marker)
	if idx < 0 {
		return ""
	}
	rest := consumerARN[idx+len(marker):]
	if colon := strings.LastIndex(rest, ":"); colon >= 0 {
		return rest[:colon]
	}
	return rest
}

// DescribeStreamConsumer looks up a consumer by name or ARN.
func (h *Handlers) DescribeStreamConsumer(region string, in DescribeStreamConsumerInput) (*DescribeStreamConsumerOutput, error) {
	streamARN := in.StreamARN
	consumerName := in.ConsumerName
	if in.ConsumerARN != "" {
		consumerName = consumerNameFromARN(in.ConsumerARN)
		streamARN = in.ConsumerARN
	}

	name, err := kmodel.StreamNameFromARN(streamARN)
	if err != nil {
		return nil, kerrors.New(kerrors.InvalidArgument, "StreamARN is malformed")
	}

	s := h.engine.Region(region)
	var out *DescribeStreamConsumerOutput
	var opErr error
	s.View(func(streams map[string]*kmodel.Stream) {
		st, err := requireNotDeleting(streams, name)
		if err != nil {
			opErr = err
			return
		}
		c, exists := st.Consumers[consumerName]
		if !exists {
			opErr = kerrors.New(kerrors.ResourceNotFound, "Consumer %s not found on stream %s.", consumerName, name)
			return
		}
		out = &DescribeStreamConsumerOutput{ConsumerDescription: toConsumerDescription(c)}
	})
	return out, opErr
}

// ListStreamConsumers lists every consumer registered on a stream,
// sorted by name.
func (h *Handlers) ListStreamConsumers(region string, in ListStreamConsumersInput) (*ListStreamConsumersOutput, error) {
	name, err := kmodel.StreamNameFromARN(in.StreamARN)
	if err != nil {
		return nil, kerrors.New(kerrors.InvalidArgument, "StreamARN is malformed")
	}

	s := h.engine.Region(region)
	var out *ListStreamConsumersOutput
	var opErr error
	s.View(func(streams map[string]*kmodel.Stream) {
		st, err := requireNotDeleting(streams, name)
		if err != nil {
			opErr = err
			return
		}
		names := make([]string, 0, len(st.Consumers))
		for n := range st.Consumers {
			names = append(names, n)
		}
		sort.Strings(names)

		consumers := make([]ConsumerDescription, len(names))
		for i, n := range names {
			consumers[i] = toConsumerDescription(st.Consumers[n])
		}
		out = &ListStreamConsumersOutput{Consumers: consumers}
	})
	return out, opErr
}
