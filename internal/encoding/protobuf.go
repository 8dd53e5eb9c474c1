package encoding

import (
	"encoding/json"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tripscope/tripscope-cli/internal/models"
)

// ProtobufEncoder encodes events as protobuf Struct payloads. The
// schema-less Struct keeps the open event schema intact: free-form source
// fields cross the wire exactly like the known ones.
type ProtobufEncoder struct{}

func NewProtobufEncoder() *ProtobufEncoder {
	return &ProtobufEncoder{}
}

func (e *ProtobufEncoder) Encode(event models.Event) ([]byte, error) {
	// Route through the event's canonical JSON form so field names and
	// Extra passthrough match the JSON encoder.
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

func (e *ProtobufEncoder) ContentType() string {
	return "application/x-protobuf"
}
