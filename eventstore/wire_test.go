// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package eventstore

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type optionalRow struct {
	Name    string   `rpc:"name"`
	Count   *int64   `rpc:"count"`
	Ratio   *float64 `rpc:"ratio"`
	Small   int32    `rpc:"small"`
	Skipped string
}

func TestCodecRows(t *testing.T) {
	n := int64(7)
	rows := []optionalRow{
		{Name: "a", Count: &n, Small: 3, Skipped: "x"},
		{Name: "b"},
	}
	rec, err := encodeRows(rows, nil)
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(4), rec.NumCols())
	assert.True(t, rec.Schema().Field(1).Nullable)
	assert.False(t, rec.Schema().Field(0).Nullable)

	got, err := decodeRows[optionalRow](rec)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, int64(7), *got[0].Count)
	assert.Nil(t, got[0].Ratio)
	assert.Equal(t, int32(3), got[0].Small)
	assert.Empty(t, got[0].Skipped)
	assert.Nil(t, got[1].Count)
}

func TestCodecRejectsUnsupportedTypes(t *testing.T) {
	type bad struct {
		M map[string]int `rpc:"m"`
	}
	_, err := encodeRows([]bad{{}}, nil)
	assert.ErrorContains(t, err, "unsupported Go type")
}

func TestDecodeRowsTypeMismatch(t *testing.T) {
	type asString struct {
		Count string `rpc:"count"`
	}
	n := int64(1)
	rec, err := encodeRows([]optionalRow{{Count: &n}}, nil)
	require.NoError(t, err)
	defer rec.Release()

	_, err = decodeRows[asString](rec)
	assert.ErrorContains(t, err, "count")
}

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, MethodGetEvents, "req-1", GetEventsParams{StreamID: "s-1"}))

	req, err := ReadRequest(&buf)
	require.NoError(t, err)
	defer req.Release()

	assert.Equal(t, MethodGetEvents, req.Method)
	assert.Equal(t, ProtocolVersion, req.Version)
	assert.Equal(t, "req-1", req.RequestID)
	assert.Equal(t, "req-1", req.Metadata[MetaRequestID])

	params, err := DecodeParams[GetEventsParams](req)
	require.NoError(t, err)
	assert.Equal(t, "s-1", params.StreamID)
}

func TestReadRequestValidatesMetadata(t *testing.T) {
	// A plain event stream has none of the request metadata.
	data, err := EncodeEvents([]Event{{ID: "1"}})
	require.NoError(t, err)
	_, err = ReadRequest(bytes.NewReader(data))
	var rpcErr *RpcError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "ProtocolError", rpcErr.Type)

	md := arrow.NewMetadata([]string{MetaMethod, MetaRequestVersion}, []string{"X", "99"})
	rec, err := encodeRows([]GetEventsParams{{}}, &md)
	require.NoError(t, err)
	defer rec.Release()
	var buf bytes.Buffer
	require.NoError(t, writeStream(&buf, rec))
	_, err = ReadRequest(&buf)
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "VersionError", rpcErr.Type)
}

func TestUnaryResponses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUnaryResponse(&buf, UpsertSchemaResponse{Success: true, Message: "ok"}, "r"))
	res, err := ReadUnaryResponse[UpsertSchemaResponse](&buf)
	require.NoError(t, err)
	assert.Equal(t, UpsertSchemaResponse{Success: true, Message: "ok"}, res)

	buf.Reset()
	require.NoError(t, WriteEmptyResponse[AppendEventResult](&buf, "r"))
	_, err = ReadUnaryResponse[AppendEventResult](&buf)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	buf.Reset()
	require.NoError(t, WriteErrorResponse(&buf, &RpcError{Type: "ValueError", Message: "bad"}, "srv", "r"))
	_, err = ReadUnaryResponse[AppendEventResult](&buf)
	var rpcErr *RpcError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, &RpcError{Type: "ValueError", Message: "bad", RequestID: "r"}, rpcErr)

	buf.Reset()
	require.NoError(t, WriteErrorResponse(&buf, errors.New("plain"), "", ""))
	_, err = ReadUnaryResponse[AppendEventResult](&buf)
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "*errors.errorString", rpcErr.Type)
	assert.Equal(t, "plain", rpcErr.Message)
}

func TestEventStreamWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewEventStreamWriter(&buf, "r")
	require.NoError(t, w.Write([]Event{{ID: "1"}, {ID: "2"}}))
	require.NoError(t, w.Write(nil))
	require.NoError(t, w.Write([]Event{{ID: "3"}}))
	require.NoError(t, w.Close())
	assert.Equal(t, int64(2), w.Batches())
	assert.Equal(t, int64(3), w.Rows())

	events, batches, err := decodeEventStream(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(2), batches)
	require.Len(t, events, 3)
	assert.Equal(t, "3", events[2].ID)
}

func TestPrepareEvents(t *testing.T) {
	in := []Event{{EventType: "A"}, {ID: "keep", Timestamp: 42}}
	out := prepareEvents("s", in)

	assert.Empty(t, in[0].ID)
	assert.Equal(t, "s", out[0].StreamID)
	assert.NotEmpty(t, out[0].ID)
	assert.InDelta(t, uint64(time.Now().UnixMilli()), out[0].Timestamp, 5000)
	assert.Equal(t, "keep", out[1].ID)
	assert.Equal(t, uint64(42), out[1].Timestamp)
}

func TestBodyEncoding(t *testing.T) {
	data := bytes.Repeat([]byte("graveyard "), 100)
	enc, err := EncodeBody(CompressionZstd, data)
	require.NoError(t, err)
	assert.Less(t, len(enc), len(data))

	dec, err := DecodeBody(CompressionZstd, enc)
	require.NoError(t, err)
	assert.Equal(t, data, dec)

	same, err := EncodeBody(CompressionNone, data)
	require.NoError(t, err)
	assert.Equal(t, data, same)

	_, err = EncodeBody("br", data)
	assert.Error(t, err)
	_, err = DecodeBody(CompressionZstd, []byte("not zstd"))
	assert.Error(t, err)

	assert.True(t, AcceptsZstd("gzip, zstd;q=0.9"))
	assert.False(t, AcceptsZstd("gzip"))
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 50051, cfg.Port)
	assert.False(t, cfg.UseTLS)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "localhost:50051", cfg.Target())
	assert.Equal(t, "http://localhost:50051/graveyard", cfg.BaseURL())
	require.NoError(t, cfg.Validate())

	cfg.UseTLS = true
	cfg.Host = "::1"
	assert.Equal(t, "https://[::1]:50051/graveyard", cfg.BaseURL())

	cfg.Timeout = 0
	assert.ErrorContains(t, cfg.Validate(), "timeout")

	cfg.Timeout = 5000
	assert.ErrorContains(t, cfg.Validate(), "below 1ms")
	cfg.Timeout = time.Millisecond
	assert.NoError(t, cfg.Validate())
}
