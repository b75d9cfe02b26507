package grpc

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestProtoCodec_WireLayout(t *testing.T) {
	c := protoCodec{}
	assert.Equal(t, "proto", c.Name())

	// field 1, length-delimited, "abc"
	b, err := c.Marshal(&DownloadLinkRequest{FileID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x03, 'a', 'b', 'c'}, b)

	b, err = c.Marshal(&LoginRequest{Variant: models.VariantOps, Identifier: "alice"})
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x0a, 0x03, 'o', 'p', 's', 0x12, 0x05}, "alice"...), b)
}

func TestProtoCodec_FilesAndLink(t *testing.T) {
	c := protoCodec{}
	at := time.Date(2025, 6, 1, 12, 0, 0, 500, time.UTC)

	in := &ListFilesResponse{Files: []*models.File{
		{ID: "f1", Filename: "deck.pptx", ContentType: "application/zip", Size: 1 << 33, UploadedBy: "ops", UploadedAt: at},
		{ID: "f2", Filename: "empty.docx"},
	}}
	b, err := c.Marshal(in)
	require.NoError(t, err)

	out := &ListFilesResponse{}
	require.NoError(t, c.Unmarshal(b, out))
	require.Len(t, out.Files, 2)
	assert.Equal(t, *in.Files[0], *out.Files[0])
	assert.Equal(t, "empty.docx", out.Files[1].Filename)
	assert.True(t, out.Files[1].UploadedAt.IsZero())

	link := &DownloadLinkResponse{Link: &services.DownloadLink{Token: "t", URL: "http://x/download/t", ExpiresAt: at, ExpiresIn: "30 minutes"}}
	b, err = c.Marshal(link)
	require.NoError(t, err)
	got := &DownloadLinkResponse{}
	require.NoError(t, c.Unmarshal(b, got))
	assert.Equal(t, *link.Link, *got.Link)
}

func TestProtoCodec_SkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "tok")

	out := &LoginResponse{}
	require.NoError(t, protoCodec{}.Unmarshal(b, out))
	assert.Equal(t, "tok", out.Token)
}

func TestProtoCodec_Malformed(t *testing.T) {
	c := protoCodec{}

	assert.Error(t, c.Unmarshal([]byte{0x0a, 0x05, 'a'}, &DownloadLinkRequest{}))
	// field 1 as varint where a string is expected
	assert.ErrorIs(t, c.Unmarshal([]byte{0x08, 0x01}, &DownloadLinkRequest{}), errWireType)

	_, err := c.Marshal(struct{}{})
	assert.Error(t, err)
	assert.Error(t, c.Unmarshal(nil, &struct{}{}))
}

func TestProtoCodec_GeneratedMessages(t *testing.T) {
	c := protoCodec{}
	ts := timestamppb.New(time.Unix(1700000000, 0))

	b, err := c.Marshal(ts)
	require.NoError(t, err)
	out := &timestamppb.Timestamp{}
	require.NoError(t, c.Unmarshal(b, out))
	assert.Equal(t, ts.AsTime(), out.AsTime())
}
