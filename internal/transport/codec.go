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

package transport

import (
	"github.com/ugorji/go/codec"
)

const (
	contentTypeJSON = "application/x-amz-json-1.1"
	contentTypeCBOR = "application/x-amz-cbor-1.1"
)

var cborHandle = &codec.CborHandle{}

// encodeCBOR renders v as a CBOR payload, used when a client sends
// Content-Type: application/x-amz-cbor-1.1 - the SDKs that prefer CBOR
// over JSON for its smaller wire size.
func encodeCBOR(v interface{}) ([]byte, error) {
	var out []byte
	err := codec.NewEncoderBytes(&out, cborHandle).Encode(v)
	return out, err
}

// decodeCBOR parses a CBOR request body into v.
func decodeCBOR(data []byte, v interface{}) error {
	return codec.NewDecoderBytes(data, cborHandle).Decode(v)
}
