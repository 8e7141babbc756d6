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

// Package handlers implements every Kinesis Data Streams operation
// this engine supports, in the request/response shape the AWS SDK
// clients send and expect: one Go struct per JSON/CBOR body, field
// names matching aws-sdk-go/service/kinesis so existing SDK clients
// work against this engine unmodified.
package handlers

import "time"

// Tag is one key/value pair as used by AddTagsToStream and
// ListTagsForStream.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// HashKeyRange mirrors kmodel.HashKeyRange on the wire.
type HashKeyRange struct {
	StartingHashKey string `json:"StartingHashKey"`
	EndingHashKey   string `json:"EndingHashKey"`
}

// SequenceNumberRange mirrors kmodel.SequenceNumberRange on the wire.
type SequenceNumberRange struct {
	StartingSequenceNumber string  `json:"StartingSequenceNumber"`
	EndingSequenceNumber   *string `json:"EndingSequenceNumber,omitempty"`
}

// Shard is the wire shape of a shard description.
type Shard struct {
	ShardId               string              `json:"ShardId"`
	HashKeyRange          HashKeyRange        `json:"HashKeyRange"`
	SequenceNumberRange   SequenceNumberRange `json:"SequenceNumberRange"`
	ParentShardId         string              `json:"ParentShardId,omitempty"`
	AdjacentParentShardId string              `json:"AdjacentParentShardId,omitempty"`
}

// ChildShard is returned by GetRecords once a closed shard is drained,
// pointing readers at the shard(s) that replace it.
type ChildShard struct {
	ShardId       string       `json:"ShardId"`
	ParentShards  []string     `json:"ParentShards"`
	HashKeyRange  HashKeyRange `json:"HashKeyRange"`
}

// StreamModeDetails selects PROVISIONED vs ON_DEMAND.
type StreamModeDetails struct {
	StreamMode string `json:"StreamMode"`
}

// StreamDescription is the payload of DescribeStream.
type StreamDescription struct {
	StreamName                          string            `json:"StreamName"`
	StreamARN                           string            `json:"StreamARN"`
	StreamStatus                        string            `json:"StreamStatus"`
	StreamModeDetails                   StreamModeDetails `json:"StreamModeDetails"`
	Shards                              []Shard           `json:"Shards"`
	HasMoreShards                       bool              `json:"HasMoreShards"`
	RetentionPeriodHours                int               `json:"RetentionPeriodHours"`
	StreamCreationTimestamp             time.Time         `json:"StreamCreationTimestamp"`
	EnhancedMonitoring                  []ShardLevelMetrics `json:"EnhancedMonitoring"`
	EncryptionType                      string            `json:"EncryptionType,omitempty"`
	KeyId                               string            `json:"KeyId,omitempty"`
}

// ShardLevelMetrics is one entry of DescribeStream's EnhancedMonitoring list.
type ShardLevelMetrics struct {
	ShardLevelMetrics []string `json:"ShardLevelMetrics"`
}

// StreamDescriptionSummary is the payload of DescribeStreamSummary.
type StreamDescriptionSummary struct {
	StreamName              string              `json:"StreamName"`
	StreamARN                string              `json:"StreamARN"`
	StreamStatus             string              `json:"StreamStatus"`
	StreamModeDetails        StreamModeDetails   `json:"StreamModeDetails"`
	RetentionPeriodHours     int                 `json:"RetentionPeriodHours"`
	StreamCreationTimestamp  time.Time           `json:"StreamCreationTimestamp"`
	EnhancedMonitoring       []ShardLevelMetrics `json:"EnhancedMonitoring"`
	EncryptionType           string              `json:"EncryptionType,omitempty"`
	KeyId                    string              `json:"KeyId,omitempty"`
	OpenShardCount           int                 `json:"OpenShardCount"`
	ConsumerCount            int                 `json:"ConsumerCount"`
}

// CreateStreamInput is the request body of CreateStream.
type CreateStreamInput struct {
	StreamName        string             `json:"StreamName"`
	ShardCount        int                `json:"ShardCount,omitempty"`
	StreamModeDetails *StreamModeDetails `json:"StreamModeDetails,omitempty"`
}

// DeleteStreamInput is the request body of DeleteStream.
type DeleteStreamInput struct {
	StreamName          string `json:"StreamName,omitempty"`
	StreamARN           string `json:"StreamARN,omitempty"`
	EnforceConsumerDeletion bool `json:"EnforceConsumerDeletion,omitempty"`
}

// DescribeStreamInput is the request body of DescribeStream.
type DescribeStreamInput struct {
	StreamName            string `json:"StreamName,omitempty"`
	StreamARN             string `json:"StreamARN,omitempty"`
	ExclusiveStartShardId string `json:"ExclusiveStartShardId,omitempty"`
	Limit                 int    `json:"Limit,omitempty"`
}

// DescribeStreamOutput is the response body of DescribeStream.
type DescribeStreamOutput struct {
	StreamDescription StreamDescription `json:"StreamDescription"`
}

// DescribeStreamSummaryInput is the request body of DescribeStreamSummary.
type DescribeStreamSummaryInput struct {
	StreamName string `json:"StreamName,omitempty"`
	StreamARN  string `json:"StreamARN,omitempty"`
}

// DescribeStreamSummaryOutput is the response body of DescribeStreamSummary.
type DescribeStreamSummaryOutput struct {
	StreamDescriptionSummary StreamDescriptionSummary `json:"StreamDescriptionSummary"`
}

// ListStreamsInput is the request body of ListStreams.
type ListStreamsInput struct {
	ExclusiveStartStreamName string `json:"ExclusiveStartStreamName,omitempty"`
	Limit                    int    `json:"Limit,omitempty"`
}

// StreamSummary is one entry of ListStreams' StreamSummaries.
type StreamSummary struct {
	StreamName   string    `json:"StreamName"`
	StreamARN    string    `json:"StreamARN"`
	StreamStatus string    `json:"StreamStatus"`
	StreamModeDetails StreamModeDetails `json:"StreamModeDetails"`
	StreamCreationTimestamp time.Time `json:"StreamCreationTimestamp"`
}

// ListStreamsOutput is the response body of ListStreams.
type ListStreamsOutput struct {
	StreamNames    []string        `json:"StreamNames"`
	StreamSummaries []StreamSummary `json:"StreamSummaries"`
	HasMoreStreams bool            `json:"HasMoreStreams"`
}

// ListShardsInput is the request body of ListShards.
type ListShardsInput struct {
	StreamName             string `json:"StreamName,omitempty"`
	StreamARN              string `json:"StreamARN,omitempty"`
	ExclusiveStartShardId  string `json:"ExclusiveStartShardId,omitempty"`
	MaxResults             int    `json:"MaxResults,omitempty"`
	NextToken              string `json:"NextToken,omitempty"`
}

// ListShardsOutput is the response body of ListShards.
type ListShardsOutput struct {
	Shards    []Shard `json:"Shards"`
	NextToken string  `json:"NextToken,omitempty"`
}

// MergeShardsInput is the request body of MergeShards.
type MergeShardsInput struct {
	StreamName           string `json:"StreamName,omitempty"`
	StreamARN            string `json:"StreamARN,omitempty"`
	ShardToMerge         string `json:"ShardToMerge"`
	AdjacentShardToMerge string `json:"AdjacentShardToMerge"`
}

// SplitShardInput is the request body of SplitShard.
type SplitShardInput struct {
	StreamName           string `json:"StreamName,omitempty"`
	StreamARN            string `json:"StreamARN,omitempty"`
	ShardToSplit         string `json:"ShardToSplit"`
	NewStartingHashKey   string `json:"NewStartingHashKey"`
}

// UpdateShardCountInput is the request body of UpdateShardCount.
type UpdateShardCountInput struct {
	StreamName       string `json:"StreamName,omitempty"`
	StreamARN        string `json:"StreamARN,omitempty"`
	TargetShardCount int    `json:"TargetShardCount"`
	ScalingType      string `json:"ScalingType"`
}

// UpdateShardCountOutput is the response body of UpdateShardCount.
type UpdateShardCountOutput struct {
	StreamName       string `json:"StreamName"`
	StreamARN        string `json:"StreamARN"`
	CurrentShardCount int   `json:"CurrentShardCount"`
	TargetShardCount  int   `json:"TargetShardCount"`
}

// UpdateStreamModeInput is the request body of UpdateStreamMode.
type UpdateStreamModeInput struct {
	StreamARN         string            `json:"StreamARN"`
	StreamModeDetails StreamModeDetails `json:"StreamModeDetails"`
}

// StreamRetentionInput is shared by Increase/DecreaseStreamRetentionPeriod.
type StreamRetentionInput struct {
	StreamName           string `json:"StreamName,omitempty"`
	StreamARN            string `json:"StreamARN,omitempty"`
	RetentionPeriodHours int    `json:"RetentionPeriodHours"`
}

// AddTagsToStreamInput is the request body of AddTagsToStream.
type AddTagsToStreamInput struct {
	StreamName string            `json:"StreamName,omitempty"`
	StreamARN  string            `json:"StreamARN,omitempty"`
	Tags       map[string]string `json:"Tags"`
}

// RemoveTagsFromStreamInput is the request body of RemoveTagsFromStream.
type RemoveTagsFromStreamInput struct {
	StreamName string   `json:"StreamName,omitempty"`
	StreamARN  string   `json:"StreamARN,omitempty"`
	TagKeys    []string `json:"TagKeys"`
}

// ListTagsForStreamInput is the request body of ListTagsForStream.
type ListTagsForStreamInput struct {
	StreamName         string `json:"StreamName,omitempty"`
	StreamARN          string `json:"StreamARN,omitempty"`
	ExclusiveStartTagKey string `json:"ExclusiveStartTagKey,omitempty"`
	Limit              int    `json:"Limit,omitempty"`
}

// ListTagsForStreamOutput is the response body of ListTagsForStream.
type ListTagsForStreamOutput struct {
	Tags       []Tag `json:"Tags"`
	HasMoreTags bool `json:"HasMoreTags"`
}

// StreamEncryptionInput is shared by Start/StopStreamEncryption.
type StreamEncryptionInput struct {
	StreamName     string `json:"StreamName,omitempty"`
	StreamARN      string `json:"StreamARN,omitempty"`
	EncryptionType string `json:"EncryptionType"`
	KeyId          string `json:"KeyId,omitempty"`
}

// PutRecordInput is the request body of PutRecord.
type PutRecordInput struct {
	StreamName      string `json:"StreamName,omitempty"`
	StreamARN       string `json:"StreamARN,omitempty"`
	Data            []byte `json:"Data"`
	PartitionKey    string `json:"PartitionKey"`
	ExplicitHashKey string `json:"ExplicitHashKey,omitempty"`
	SequenceNumberForOrdering string `json:"SequenceNumberForOrdering,omitempty"`
}

// PutRecordOutput is the response body of PutRecord.
type PutRecordOutput struct {
	ShardId        string `json:"ShardId"`
	SequenceNumber string `json:"SequenceNumber"`
	EncryptionType string `json:"EncryptionType,omitempty"`
}

// PutRecordsRequestEntry is one entry of PutRecords' Records list.
type PutRecordsRequestEntry struct {
	Data            []byte `json:"Data"`
	PartitionKey    string `json:"PartitionKey"`
	ExplicitHashKey string `json:"ExplicitHashKey,omitempty"`
}

// PutRecordsInput is the request body of PutRecords.
type PutRecordsInput struct {
	StreamName string                    `json:"StreamName,omitempty"`
	StreamARN  string                    `json:"StreamARN,omitempty"`
	Records    []PutRecordsRequestEntry `json:"Records"`
}

// PutRecordsResultEntry is one entry of PutRecords' Records response list.
type PutRecordsResultEntry struct {
	ShardId        string `json:"ShardId,omitempty"`
	SequenceNumber string `json:"SequenceNumber,omitempty"`
	ErrorCode      string `json:"ErrorCode,omitempty"`
	ErrorMessage   string `json:"ErrorMessage,omitempty"`
}

// PutRecordsOutput is the response body of PutRecords.
type PutRecordsOutput struct {
	FailedRecordCount int                      `json:"FailedRecordCount"`
	Records           []PutRecordsResultEntry `json:"Records"`
	EncryptionType    string                   `json:"EncryptionType,omitempty"`
}

// GetShardIteratorInput is the request body of GetShardIterator.
type GetShardIteratorInput struct {
	StreamName             string `json:"StreamName,omitempty"`
	StreamARN              string `json:"StreamARN,omitempty"`
	ShardId                string `json:"ShardId"`
	ShardIteratorType      string `json:"ShardIteratorType"`
	StartingSequenceNumber string `json:"StartingSequenceNumber,omitempty"`
	Timestamp              *time.Time `json:"Timestamp,omitempty"`
}

// GetShardIteratorOutput is the response body of GetShardIterator.
type GetShardIteratorOutput struct {
	ShardIterator string `json:"ShardIterator"`
}

// GetRecordsInput is the request body of GetRecords.
type GetRecordsInput struct {
	ShardIterator string `json:"ShardIterator"`
	Limit         int    `json:"Limit,omitempty"`
	StreamARN     string `json:"StreamARN,omitempty"`
}

// RecordOutput is one entry of GetRecords' Records list.
type RecordOutput struct {
	SequenceNumber              string    `json:"SequenceNumber"`
	ApproximateArrivalTimestamp time.Time `json:"ApproximateArrivalTimestamp"`
	Data                        []byte    `json:"Data"`
	PartitionKey                string    `json:"PartitionKey"`
	EncryptionType              string    `json:"EncryptionType,omitempty"`
}

// GetRecordsOutput is the response body of GetRecords.
type GetRecordsOutput struct {
	Records            []RecordOutput `json:"Records"`
	NextShardIterator  *string        `json:"NextShardIterator,omitempty"`
	MillisBehindLatest int64          `json:"MillisBehindLatest"`
	ChildShards        []ChildShard   `json:"ChildShards,omitempty"`
}

// RegisterStreamConsumerInput is the request body of RegisterStreamConsumer.
type RegisterStreamConsumerInput struct {
	StreamARN    string `json:"StreamARN"`
	ConsumerName string `json:"ConsumerName"`
}

// ConsumerDescription is the payload shared by RegisterStreamConsumer
// and DescribeStreamConsumer.
type ConsumerDescription struct {
	ConsumerName              string    `json:"ConsumerName"`
	ConsumerARN               string    `json:"ConsumerARN"`
	ConsumerStatus            string    `json:"ConsumerStatus"`
	ConsumerCreationTimestamp time.Time `json:"ConsumerCreationTimestamp"`
	StreamARN                 string    `json:"StreamARN"`
}

// RegisterStreamConsumerOutput is the response body of RegisterStreamConsumer.
type RegisterStreamConsumerOutput struct {
	Consumer ConsumerDescription `json:"Consumer"`
}

// DeregisterStreamConsumerInput is the request body of DeregisterStreamConsumer.
type DeregisterStreamConsumerInput struct {
	StreamARN    string `json:"StreamARN,omitempty"`
	ConsumerName string `json:"ConsumerName,omitempty"`
	ConsumerARN  string `json:"ConsumerARN,omitempty"`
}

// DescribeStreamConsumerInput is the request body of DescribeStreamConsumer.
type DescribeStreamConsumerInput struct {
	StreamARN    string `json:"StreamARN,omitempty"`
	ConsumerName string `json:"ConsumerName,omitempty"`
	ConsumerARN  string `json:"ConsumerARN,omitempty"`
}

// DescribeStreamConsumerOutput is the response body of DescribeStreamConsumer.
type DescribeStreamConsumerOutput struct {
	ConsumerDescription ConsumerDescription `json:"ConsumerDescription"`
}

// ListStreamConsumersInput is the request body of ListStreamConsumers.
type ListStreamConsumersInput struct {
	StreamARN  string `json:"StreamARN"`
	NextToken  string `json:"NextToken,omitempty"`
	MaxResults int    `json:"MaxResults,omitempty"`
}

// ListStreamConsumersOutput is the response body of ListStreamConsumers.
type ListStreamConsumersOutput struct {
	Consumers []ConsumerDescription `json:"Consumers"`
	NextToken string                 `json:"NextToken,omitempty"`
}

// DescribeLimitsOutput is the response body of DescribeLimits.
type DescribeLimitsOutput struct {
	ShardLimit                int `json:"ShardLimit"`
	OpenShardCount            int `json:"OpenShardCount"`
	OnDemandStreamCount       int `json:"OnDemandStreamCount"`
	OnDemandStreamCountLimit  int `json:"OnDemandStreamCountLimit"`
}

// SubscribeToShardInput is the request body of SubscribeToShard.
type SubscribeToShardInput struct {
	ConsumerARN string                      `json:"ConsumerARN"`
	ShardId     string                      `json:"ShardId"`
	StartingPosition SubscribeStartingPosition `json:"StartingPosition"`
}

// SubscribeStartingPosition mirrors GetShardIterator's starting position fields.
type SubscribeStartingPosition struct {
	Type                   string     `json:"Type"`
	SequenceNumber         string     `json:"SequenceNumber,omitempty"`
	Timestamp              *time.Time `json:"Timestamp,omitempty"`
}

// SubscribeToShardEvent is one frame pushed over the SubscribeToShard
// websocket stream.
type SubscribeToShardEvent struct {
	Records            []RecordOutput `json:"Records"`
	ContinuationSequenceNumber string `json:"ContinuationSequenceNumber,omitempty"`
	MillisBehindLatest int64          `json:"MillisBehindLatest"`
	ChildShards        []ChildShard   `json:"ChildShards,omitempty"`
}
