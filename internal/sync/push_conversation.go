package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/agentvault/synccore/internal/aead"
	"github.com/agentvault/synccore/internal/model"
	"github.com/agentvault/synccore/internal/signer"
)

// conversationChunkLimit is the max ciphertext size of one uploaded
// conversation piece when the engine has no positive FreeUploadBudget
// (spec.md §4.8.4).
const conversationChunkLimit = 90 * 1024

// PushConversationDelta implements spec.md §4.8.4: uploads only the
// messages not yet synced for (conv.Client, sessionID), chunking the
// encrypted segment into pieces and advancing the cursor only once
// every piece lands.
func (e *Engine) PushConversationDelta(ctx context.Context, conv model.Conversation, sessionID string) error {
	cursorKey := model.ConversationOffsetKey(string(conv.Client), sessionID)
	lastSynced, err := e.readCursor(ctx, cursorKey)
	if err != nil {
		return fmt.Errorf("push conversation delta: read cursor: %w", err)
	}

	safeOffset := clamp(lastSynced, 0, len(conv.Messages))
	delta := conv.Messages[safeOffset:]
	if len(delta) == 0 {
		return nil
	}

	segment := model.ConversationSegment{
		ID:        conv.ID,
		Client:    conv.Client,
		Project:   conv.Project,
		StartedAt: conv.StartedAt,
		UpdatedAt: conv.UpdatedAt,
		Offset:    safeOffset,
		Count:     len(delta),
		Messages:  delta,
	}

	plaintext, err := serializeSegment(segment)
	if err != nil {
		return fmt.Errorf("push conversation delta: serialize: %w", err)
	}
	sealed, err := aead.Encrypt(e.SymKey, plaintext)
	if err != nil {
		return fmt.Errorf("push conversation delta: encrypt: %w", err)
	}

	limit := e.FreeUploadBudget
	if limit <= 0 {
		limit = conversationChunkLimit
	}
	pieces := splitBytes(sealed, limit)
	now := time.Now()
	for i, piece := range pieces {
		sig, err := signer.Sign(e.PrivateKey, piece)
		if err != nil {
			return fmt.Errorf("push conversation delta: sign chunk %d: %w", i+1, err)
		}
		tags := conversationTags(e.AppName, e.Wallet, now, conv.Client, conv.Project, sessionID, safeOffset, len(delta), i+1, len(pieces))
		tags = withSignature(tags, sig)
		if _, err := e.Ledger.Upload(ctx, piece, tags); err != nil {
			// Partial success never advances the cursor; next tick
			// re-uploads the whole segment from scratch.
			return fmt.Errorf("push conversation delta: upload chunk %d/%d: %w", i+1, len(pieces), err)
		}
	}

	return e.Store.SetMeta(ctx, cursorKey, fmt.Sprintf("%d", len(conv.Messages)))
}

func (e *Engine) readCursor(ctx context.Context, key string) (int, error) {
	v, ok, err := e.Store.GetMeta(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, fmt.Errorf("parse cursor %q: %w", v, err)
	}
	return n, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// splitBytes slices b into chunks of at most limit bytes, always
// returning at least one chunk (possibly empty) so callers never skip
// the upload loop for a non-empty buffer.
func splitBytes(b []byte, limit int) [][]byte {
	if len(b) == 0 {
		return [][]byte{b}
	}
	var out [][]byte
	for len(b) > 0 {
		n := limit
		if n > len(b) {
			n = len(b)
		}
		out = append(out, b[:n])
		b = b[n:]
	}
	return out
}
