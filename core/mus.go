// Copyright 2025 Poiesic Systems
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


package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain types persisted by the storage layer.
// Timestamps are encoded as microsecond Unix values. Field order is part
// of the stored format and must not change.

var (
	// DocumentMUS serializes Document values.
	DocumentMUS = documentMUS{}
	// SessionMUS serializes ChatSession values.
	SessionMUS = sessionMUS{}
	// MessageMUS serializes Message values.
	MessageMUS = messageMUS{}
	// ChunkRecordMUS serializes ChunkRecord values.
	ChunkRecordMUS = chunkRecordMUS{}
	// IndexManifestMUS serializes IndexManifest values.
	IndexManifestMUS = indexManifestMUS{}
)

var errNegativeLength = errors.New("negative length")

// -- time

func marshalTime(t time.Time, bs []byte) int {
	return raw.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micro, n, err := raw.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return raw.Int64.Size(t.UnixMicro())
}

// -- []float32

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]float32, length)
	for i := 0; i < length; i++ {
		var m int
		v[i], m, err = raw.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func sizeVector(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

// -- map[string]string

func marshalStringMap(m map[string]string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(m), bs)
	for k, v := range m {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v, bs[n:])
	}
	return n
}

func unmarshalStringMap(bs []byte) (m map[string]string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	m = make(map[string]string, length)
	for i := 0; i < length; i++ {
		var k, v string
		var sz int
		k, sz, err = ord.String.Unmarshal(bs[n:])
		n += sz
		if err != nil {
			return nil, n, err
		}
		v, sz, err = ord.String.Unmarshal(bs[n:])
		n += sz
		if err != nil {
			return nil, n, err
		}
		m[k] = v
	}
	return m, n, nil
}

func sizeStringMap(m map[string]string) (size int) {
	size = varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k)
		size += ord.String.Size(v)
	}
	return size
}

// -- Document

type documentMUS struct{}

func (documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = ord.String.Marshal(string(d.Id), bs)
	n += ord.String.Marshal(d.Filename, bs[n:])
	n += ord.String.Marshal(d.FileRef, bs[n:])
	n += ord.Bool.Marshal(d.Processed, bs[n:])
	n += marshalTime(d.CreatedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var id string
	var m int
	id, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return d, n, err
	}
	d.Id = ID(id)
	d.Filename, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.FileRef, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.Processed, m, err = ord.Bool.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.CreatedAt, m, err = unmarshalTime(bs[n:])
	n += m
	return d, n, err
}

func (documentMUS) Size(d Document) int {
	return ord.String.Size(string(d.Id)) +
		ord.String.Size(d.Filename) +
		ord.String.Size(d.FileRef) +
		ord.Bool.Size(d.Processed) +
		sizeTime(d.CreatedAt)
}

// -- ChatSession

type sessionMUS struct{}

func (sessionMUS) Marshal(s ChatSession, bs []byte) (n int) {
	n = ord.String.Marshal(string(s.Id), bs)
	n += ord.String.Marshal(string(s.DocumentId), bs[n:])
	n += ord.String.Marshal(s.Credential, bs[n:])
	n += marshalTime(s.CreatedAt, bs[n:])
	return n
}

func (sessionMUS) Unmarshal(bs []byte) (s ChatSession, n int, err error) {
	var str string
	var m int
	str, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return s, n, err
	}
	s.Id = ID(str)
	str, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return s, n, err
	}
	s.DocumentId = ID(str)
	s.Credential, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return s, n, err
	}
	s.CreatedAt, m, err = unmarshalTime(bs[n:])
	n += m
	return s, n, err
}

func (sessionMUS) Size(s ChatSession) int {
	return ord.String.Size(string(s.Id)) +
		ord.String.Size(string(s.DocumentId)) +
		ord.String.Size(s.Credential) +
		sizeTime(s.CreatedAt)
}

// -- Message

type messageMUS struct{}

func (messageMUS) Marshal(msg Message, bs []byte) (n int) {
	n = ord.String.Marshal(string(msg.Id), bs)
	n += ord.String.Marshal(string(msg.SessionId), bs[n:])
	n += varint.Int.Marshal(int(msg.Role), bs[n:])
	n += ord.String.Marshal(msg.Text, bs[n:])
	n += marshalTime(msg.CreatedAt, bs[n:])
	return n
}

func (messageMUS) Unmarshal(bs []byte) (msg Message, n int, err error) {
	var str string
	var m int
	str, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return msg, n, err
	}
	msg.Id = ID(str)
	str, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return msg, n, err
	}
	msg.SessionId = ID(str)
	var role int
	role, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return msg, n, err
	}
	msg.Role = Role(role)
	msg.Text, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return msg, n, err
	}
	msg.CreatedAt, m, err = unmarshalTime(bs[n:])
	n += m
	return msg, n, err
}

func (messageMUS) Size(msg Message) int {
	return ord.String.Size(string(msg.Id)) +
		ord.String.Size(string(msg.SessionId)) +
		varint.Int.Size(int(msg.Role)) +
		ord.String.Size(msg.Text) +
		sizeTime(msg.CreatedAt)
}

// -- ChunkRecord

type chunkRecordMUS struct{}

func (chunkRecordMUS) Marshal(c ChunkRecord, bs []byte) (n int) {
	n = varint.Int.Marshal(c.Seq, bs)
	n += ord.String.Marshal(c.Text, bs[n:])
	n += marshalVector(c.Vector, bs[n:])
	n += marshalStringMap(c.Metadata, bs[n:])
	return n
}

func (chunkRecordMUS) Unmarshal(bs []byte) (c ChunkRecord, n int, err error) {
	var m int
	c.Seq, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return c, n, err
	}
	c.Text, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return c, n, err
	}
	c.Vector, m, err = unmarshalVector(bs[n:])
	n += m
	if err != nil {
		return c, n, err
	}
	c.Metadata, m, err = unmarshalStringMap(bs[n:])
	n += m
	return c, n, err
}

func (chunkRecordMUS) Size(c ChunkRecord) int {
	return varint.Int.Size(c.Seq) +
		ord.String.Size(c.Text) +
		sizeVector(c.Vector) +
		sizeStringMap(c.Metadata)
}

// -- IndexManifest

type indexManifestMUS struct{}

func (indexManifestMUS) Marshal(man IndexManifest, bs []byte) (n int) {
	n = varint.Int.Marshal(man.ChunkCount, bs)
	n += varint.Int.Marshal(man.Dimension, bs[n:])
	n += varint.Uint64.Marshal(man.Checksum, bs[n:])
	n += marshalTime(man.BuiltAt, bs[n:])
	return n
}

func (indexManifestMUS) Unmarshal(bs []byte) (man IndexManifest, n int, err error) {
	var m int
	man.ChunkCount, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return man, n, err
	}
	man.Dimension, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return man, n, err
	}
	man.Checksum, m, err = varint.Uint64.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return man, n, err
	}
	man.BuiltAt, m, err = unmarshalTime(bs[n:])
	n += m
	return man, n, err
}

func (indexManifestMUS) Size(man IndexManifest) int {
	return varint.Int.Size(man.ChunkCount) +
		varint.Int.Size(man.Dimension) +
		varint.Uint64.Size(man.Checksum) +
		sizeTime(man.BuiltAt)
}
