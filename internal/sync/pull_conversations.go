package sync

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agentvault/synccore/internal/aead"
	"github.com/agentvault/synccore/internal/ledger"
	"github.com/agentvault/synccore/internal/model"
	"github.com/agentvault/synccore/internal/signer"
)

type chunkGroupKey struct {
	session   string
	offset    int
	timestamp string
}

// PullConversations implements spec.md §4.8.6: queries every
// conversation chunk for this wallet, reassembles complete
// (Session, Offset, Timestamp) groups into segments, then stitches
// segments into full Conversations per session.
func (e *Engine) PullConversations(ctx context.Context) ([]model.Conversation, error) {
	filter := []ledger.Tag{
		{Name: tagAppName, Value: e.AppName},
		{Name: tagWallet, Value: e.Wallet},
		{Name: tagType, Value: typeConversation},
	}
	all, err := e.Ledger.QueryByTags(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("pull conversations: query: %w", err)
	}

	groups := make(map[chunkGroupKey][]ledger.TxMeta)
	for _, m := range all {
		session, _ := ledger.TagValue(m.Tags, tagSession)
		offsetStr, _ := ledger.TagValue(m.Tags, tagOffset)
		ts, _ := ledger.TagValue(m.Tags, tagTimestamp)
		offset, _ := strconv.Atoi(offsetStr)
		key := chunkGroupKey{session: session, offset: offset, timestamp: ts}
		groups[key] = append(groups[key], m)
	}

	var segments []sessionSegment
	for key, members := range groups {
		seg, ok := e.assembleGroup(ctx, key, members)
		if !ok {
			continue
		}
		segments = append(segments, sessionSegment{session: key.session, segment: seg})
	}

	return stitchConversations(segments), nil
}

type sessionSegment struct {
	session string
	segment model.ConversationSegment
}

// assembleGroup fetches, verifies, and decrypts every chunk in a group
// if and only if the chunk indices are a complete bijection with
// 1..N; incomplete groups are silently skipped per spec.
func (e *Engine) assembleGroup(ctx context.Context, key chunkGroupKey, members []ledger.TxMeta) (model.ConversationSegment, bool) {
	type piece struct {
		index int
		total int
		meta  ledger.TxMeta
	}
	pieces := make([]piece, 0, len(members))
	total := -1
	for _, m := range members {
		chunkTag, ok := ledger.TagValue(m.Tags, tagChunk)
		if !ok {
			return model.ConversationSegment{}, false
		}
		i, n, ok := parseChunkTag(chunkTag)
		if !ok {
			return model.ConversationSegment{}, false
		}
		if total == -1 {
			total = n
		} else if total != n {
			return model.ConversationSegment{}, false
		}
		pieces = append(pieces, piece{index: i, total: n, meta: m})
	}
	if total <= 0 || len(pieces) != total {
		return model.ConversationSegment{}, false
	}

	sort.Slice(pieces, func(i, j int) bool { return pieces[i].index < pieces[j].index })
	seen := make(map[int]bool, total)
	for _, p := range pieces {
		if p.index < 1 || p.index > total || seen[p.index] {
			return model.ConversationSegment{}, false
		}
		seen[p.index] = true
	}

	var buf bytes.Buffer
	for _, p := range pieces {
		blob, err := e.Ledger.FetchBlob(ctx, p.meta.TxID, ledger.MaxDataShardBytes)
		if err != nil {
			e.Log.Warn().Str("session", key.session).Err(err).Msg("pull conversations: fetch chunk failed, skipping group")
			return model.ConversationSegment{}, false
		}
		sig, ok := ledger.TagValue(p.meta.Tags, tagSignature)
		if !ok || !signer.Verify(blob, sig, e.Wallet) {
			e.Log.Warn().Str("session", key.session).Msg("pull conversations: chunk signature invalid, skipping group")
			return model.ConversationSegment{}, false
		}
		buf.Write(blob)
	}

	plaintext, err := aead.Decrypt(e.SymKey, buf.Bytes())
	if err != nil {
		e.Log.Warn().Str("session", key.session).Err(err).Msg("pull conversations: decrypt failed, skipping group")
		return model.ConversationSegment{}, false
	}

	seg, err := deserializeSegment(plaintext)
	if err != nil {
		e.Log.Warn().Str("session", key.session).Err(err).Msg("pull conversations: parse failed, skipping group")
		return model.ConversationSegment{}, false
	}
	if err := seg.Validate(); err != nil {
		e.Log.Warn().Str("session", key.session).Err(err).Msg("pull conversations: invalid shape, skipping group")
		return model.ConversationSegment{}, false
	}
	return seg, true
}

func parseChunkTag(v string) (i, n int, ok bool) {
	parts := strings.SplitN(v, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	i, err1 := strconv.Atoi(parts[0])
	n, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return i, n, true
}

// stitchConversations groups segments by session, sorts by
// (offset ascending, segment updatedAt ascending), and appends each new
// offset's messages in order. Duplicate offsets within a session take
// the first seen, per the stable sort.
func stitchConversations(segments []sessionSegment) []model.Conversation {
	bySession := make(map[string][]model.ConversationSegment)
	var order []string
	for _, ss := range segments {
		if _, ok := bySession[ss.session]; !ok {
			order = append(order, ss.session)
		}
		bySession[ss.session] = append(bySession[ss.session], ss.segment)
	}

	out := make([]model.Conversation, 0, len(order))
	for _, session := range order {
		segs := bySession[session]
		sort.SliceStable(segs, func(i, j int) bool {
			if segs[i].Offset != segs[j].Offset {
				return segs[i].Offset < segs[j].Offset
			}
			return segs[i].UpdatedAt < segs[j].UpdatedAt
		})

		conv := model.Conversation{
			ID:        segs[0].ID,
			Client:    segs[0].Client,
			Project:   segs[0].Project,
			StartedAt: segs[0].StartedAt,
			UpdatedAt: segs[0].UpdatedAt,
		}
		seenOffsets := make(map[int]bool)
		for _, seg := range segs {
			if seenOffsets[seg.Offset] {
				continue
			}
			seenOffsets[seg.Offset] = true
			conv.Messages = append(conv.Messages, seg.Messages...)
			conv.Offset = seg.Offset + seg.Count
			if seg.StartedAt < conv.StartedAt {
				conv.StartedAt = seg.StartedAt
			}
			if seg.UpdatedAt > conv.UpdatedAt {
				conv.UpdatedAt = seg.UpdatedAt
			}
		}
		out = append(out, conv)
	}
	return out
}
