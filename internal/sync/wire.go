package sync

import (
	"encoding/hex"
	"encoding/json"

	"github.com/agentvault/synccore/internal/model"
)

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

func serializeSegment(seg model.ConversationSegment) ([]byte, error) {
	return json.Marshal(seg)
}

func deserializeSegment(b []byte) (model.ConversationSegment, error) {
	var seg model.ConversationSegment
	if err := json.Unmarshal(b, &seg); err != nil {
		return model.ConversationSegment{}, err
	}
	return seg, nil
}
