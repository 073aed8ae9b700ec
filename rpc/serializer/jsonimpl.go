package serializer

import (
	"github.com/ValentinKolb/dBlob/rpc/common"
	jsoniter "github.com/json-iterator/go"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{json: jsoniter.ConfigFastest}
}

// jsonSerializerImpl implements the IRPCSerializer interface using jsoniter
type jsonSerializerImpl struct {
	json jsoniter.API
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return j.json.Marshal(msg)
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return j.json.Unmarshal(b, msg)
}
