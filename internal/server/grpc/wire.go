package grpc

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/services"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Field numbers follow api/fileshare.proto. Unknown fields are skipped.

var errWireType = errors.New("grpc codec: unexpected wire type")

type wireMessage interface {
	marshalWire() ([]byte, error)
	unmarshalWire([]byte) error
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

func appendTimestamp(b []byte, num protowire.Number, t time.Time) ([]byte, error) {
	if t.IsZero() {
		return b, nil
	}
	m, err := proto.Marshal(timestamppb.New(t))
	if err != nil {
		return nil, err
	}
	return appendMessage(b, num, m), nil
}

// decodeFields walks b and hands each field to fn. fn returns the number of
// bytes it consumed, or 0 to have the field skipped.
func decodeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, errWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = string(v)
	return n, nil
}

func consumeInt64(typ protowire.Type, b []byte, dst *int64) (int, error) {
	if typ != protowire.VarintType {
		return 0, errWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = int64(v)
	return n, nil
}

func consumeTimestamp(typ protowire.Type, b []byte, dst *time.Time) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	ts := &timestamppb.Timestamp{}
	if err := proto.Unmarshal(v, ts); err != nil {
		return 0, err
	}
	*dst = ts.AsTime()
	return n, nil
}

func (r *LoginRequest) marshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, string(r.Variant))
	b = appendString(b, 2, r.Identifier)
	b = appendString(b, 3, r.Password)
	return b, nil
}

func (r *LoginRequest) unmarshalWire(data []byte) error {
	*r = LoginRequest{}
	return decodeFields(data, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			var s string
			n, err := consumeString(typ, v, &s)
			r.Variant = models.Variant(s)
			return n, err
		case 2:
			return consumeString(typ, v, &r.Identifier)
		case 3:
			return consumeString(typ, v, &r.Password)
		}
		return 0, nil
	})
}

func (r *LoginResponse) marshalWire() ([]byte, error) {
	return appendString(nil, 1, r.Token), nil
}

func (r *LoginResponse) unmarshalWire(data []byte) error {
	*r = LoginResponse{}
	return decodeFields(data, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 {
			return consumeString(typ, v, &r.Token)
		}
		return 0, nil
	})
}

func (r *LogoutRequest) marshalWire() ([]byte, error) {
	return appendString(nil, 1, string(r.Variant)), nil
}

func (r *LogoutRequest) unmarshalWire(data []byte) error {
	*r = LogoutRequest{}
	return decodeFields(data, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 {
			var s string
			n, err := consumeString(typ, v, &s)
			r.Variant = models.Variant(s)
			return n, err
		}
		return 0, nil
	})
}

func (r *LogoutResponse) marshalWire() ([]byte, error) { return nil, nil }

func (r *LogoutResponse) unmarshalWire(data []byte) error {
	return decodeFields(data, func(protowire.Number, protowire.Type, []byte) (int, error) { return 0, nil })
}

func (r *ListFilesRequest) marshalWire() ([]byte, error) { return nil, nil }

func (r *ListFilesRequest) unmarshalWire(data []byte) error {
	return decodeFields(data, func(protowire.Number, protowire.Type, []byte) (int, error) { return 0, nil })
}

func marshalFile(f *models.File) ([]byte, error) {
	var b []byte
	b = appendString(b, 1, f.ID)
	b = appendString(b, 2, f.Filename)
	b = appendString(b, 3, f.ContentType)
	b = appendInt64(b, 4, f.Size)
	b = appendString(b, 5, f.UploadedBy)
	return appendTimestamp(b, 6, f.UploadedAt)
}

func unmarshalFile(data []byte) (*models.File, error) {
	f := &models.File{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, v, &f.ID)
		case 2:
			return consumeString(typ, v, &f.Filename)
		case 3:
			return consumeString(typ, v, &f.ContentType)
		case 4:
			return consumeInt64(typ, v, &f.Size)
		case 5:
			return consumeString(typ, v, &f.UploadedBy)
		case 6:
			return consumeTimestamp(typ, v, &f.UploadedAt)
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *ListFilesResponse) marshalWire() ([]byte, error) {
	var b []byte
	for _, f := range r.Files {
		m, err := marshalFile(f)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 1, m)
	}
	return b, nil
}

func (r *ListFilesResponse) unmarshalWire(data []byte) error {
	*r = ListFilesResponse{}
	return decodeFields(data, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		m, n, err := consumeBytes(typ, v)
		if err != nil {
			return 0, err
		}
		f, err := unmarshalFile(m)
		if err != nil {
			return 0, err
		}
		r.Files = append(r.Files, f)
		return n, nil
	})
}

func (r *DownloadLinkRequest) marshalWire() ([]byte, error) {
	return appendString(nil, 1, r.FileID), nil
}

func (r *DownloadLinkRequest) unmarshalWire(data []byte) error {
	*r = DownloadLinkRequest{}
	return decodeFields(data, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 {
			return consumeString(typ, v, &r.FileID)
		}
		return 0, nil
	})
}

// The link is flattened into the response message.
func (r *DownloadLinkResponse) marshalWire() ([]byte, error) {
	if r.Link == nil {
		return nil, nil
	}
	var b []byte
	b = appendString(b, 1, r.Link.Token)
	b = appendString(b, 2, r.Link.URL)
	b, err := appendTimestamp(b, 3, r.Link.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return appendString(b, 4, r.Link.ExpiresIn), nil
}

func (r *DownloadLinkResponse) unmarshalWire(data []byte) error {
	l := &services.DownloadLink{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, v, &l.Token)
		case 2:
			return consumeString(typ, v, &l.URL)
		case 3:
			return consumeTimestamp(typ, v, &l.ExpiresAt)
		case 4:
			return consumeString(typ, v, &l.ExpiresIn)
		}
		return 0, nil
	})
	if err != nil {
		return err
	}
	r.Link = l
	return nil
}
