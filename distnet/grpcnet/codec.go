package grpcnet

import "fmt"

// rawMessage is the only message type the aw-raw codec exchanges:
// opaque bytes, carrying a CBOR-encoded wire.RawRPCEnvelope, with no
// protobuf marshaling involved.
type rawMessage struct {
	data []byte
}

// rawCodec implements encoding.Codec by passing bytes straight
// through, letting this binding speak grpc's framing/transport
// without generated protobuf stubs.
type rawCodec struct{}

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(*rawMessage)
	if !ok {
		return nil, fmt.Errorf("grpcnet: rawCodec cannot marshal %T", v)
	}
	return m.data, nil
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(*rawMessage)
	if !ok {
		return fmt.Errorf("grpcnet: rawCodec cannot unmarshal into %T", v)
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string { return "aw-raw" }
