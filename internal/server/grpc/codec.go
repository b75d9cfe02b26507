package grpc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// codecName matches grpc's default codec, so stock protobuf clients built
// from api/fileshare.proto interoperate with this server.
const codecName = "proto"

// protoCodec encodes the service messages in protobuf wire format. Any
// generated proto.Message (health, reflection) falls through to proto.
type protoCodec struct{}

func (protoCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case wireMessage:
		return m.marshalWire()
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("grpc codec: cannot marshal %T", v)
}

func (protoCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case wireMessage:
		return m.unmarshalWire(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("grpc codec: cannot unmarshal into %T", v)
}

func (protoCodec) Name() string { return codecName }
