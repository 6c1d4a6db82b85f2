package sync

import (
	"fmt"
	"time"

	"github.com/agentvault/synccore/internal/ledger"
	"github.com/agentvault/synccore/internal/model"
)

// Bit-exact ledger tag names, per spec.md §6.
const (
	tagAppName     = "App-Name"
	tagWallet      = "Wallet"
	tagContentType = "Content-Type"
	tagTimestamp   = "Timestamp"
	tagSignature   = "Signature"
	tagType        = "Type"
	tagVersion     = "Version"
	tagSalt        = "Salt"
	tagClient      = "Client"
	tagProject     = "Project"
	tagSession     = "Session"
	tagOffset      = "Offset"
	tagCount       = "Count"
	tagChunk       = "Chunk"
)

const contentTypeOctetStream = "application/octet-stream"

const (
	typeDelta        = "delta"
	typeSnapshot     = "snapshot"
	typeIdentity     = "identity"
	typeConversation = "conversation"
)

func baseTags(appName, wallet string, now time.Time) []ledger.Tag {
	return []ledger.Tag{
		{Name: tagAppName, Value: appName},
		{Name: tagWallet, Value: wallet},
		{Name: tagContentType, Value: contentTypeOctetStream},
		{Name: tagTimestamp, Value: fmt.Sprintf("%d", now.Unix())},
	}
}

func withSignature(tags []ledger.Tag, sig string) []ledger.Tag {
	return append(tags, ledger.Tag{Name: tagSignature, Value: sig})
}

func dataShardTags(appName, wallet string, now time.Time, kind model.ShardKind, version uint) []ledger.Tag {
	tags := baseTags(appName, wallet, now)
	tags = append(tags,
		ledger.Tag{Name: tagType, Value: string(kind)},
		ledger.Tag{Name: tagVersion, Value: fmt.Sprintf("%d", version)},
	)
	return tags
}

func identityTags(appName, wallet string, now time.Time, saltHex string) []ledger.Tag {
	tags := baseTags(appName, wallet, now)
	tags = append(tags,
		ledger.Tag{Name: tagType, Value: typeIdentity},
		ledger.Tag{Name: tagSalt, Value: saltHex},
	)
	return tags
}

func conversationTags(appName, wallet string, now time.Time, client model.Client, project, session string, offset, count, chunkI, chunkN int) []ledger.Tag {
	tags := baseTags(appName, wallet, now)
	tags = append(tags,
		ledger.Tag{Name: tagType, Value: typeConversation},
		ledger.Tag{Name: tagClient, Value: string(client)},
		ledger.Tag{Name: tagProject, Value: project},
		ledger.Tag{Name: tagSession, Value: session},
		ledger.Tag{Name: tagOffset, Value: fmt.Sprintf("%d", offset)},
		ledger.Tag{Name: tagCount, Value: fmt.Sprintf("%d", count)},
		ledger.Tag{Name: tagChunk, Value: fmt.Sprintf("%d/%d", chunkI, chunkN)},
	)
	return tags
}
