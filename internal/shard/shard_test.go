package shard

import (
	"testing"
	"time"

	"github.com/agentvault/synccore/internal/model"
)

func TestSerializeRoundTrip(t *testing.T) {
	s := New([]model.ShardOperation{
		{Op: model.OpUpsert, Key: "a", Value: "1", Scope: "global", Confidence: 0.9},
		{Op: model.OpDelete, Key: "b"},
	}, 1, "session-1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	b, err := Serialize(s)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := Deserialize(b)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	b2, err := Serialize(got)
	if err != nil {
		t.Fatalf("re-serialize: %v", err)
	}
	if string(b) != string(b2) {
		t.Fatalf("round trip not byte-identical:\n%s\nvs\n%s", b, b2)
	}
}

func makeOps(n int, valueLen int) []model.ShardOperation {
	val := make([]byte, valueLen)
	for i := range val {
		val[i] = 'x'
	}
	ops := make([]model.ShardOperation, n)
	for i := range ops {
		ops[i] = model.ShardOperation{
			Op: model.OpUpsert, Key: "k", Value: string(val), Scope: "global",
		}
	}
	return ops
}

func TestChunkPreservesAllOperations(t *testing.T) {
	ops := makeOps(15, 300)
	now := time.Now()

	tight, err := Chunk(ops, 1, "s1", now, 500)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(tight) < 2 {
		t.Fatalf("expected >= 2 shards under tight limit, got %d", len(tight))
	}

	var total int
	for _, s := range tight {
		total += len(s.Operations)
		size, err := EncryptedSize(s)
		if err != nil {
			t.Fatalf("measure: %v", err)
		}
		if size > 500 {
			t.Errorf("shard exceeds limit: %d > 500", size)
		}
	}
	if total != len(ops) {
		t.Errorf("expected %d total ops across chunks, got %d", len(ops), total)
	}

	loose, err := Chunk(ops, 1, "s1", now, 10_000_000)
	if err != nil {
		t.Fatalf("chunk loose: %v", err)
	}
	if len(loose) != 1 {
		t.Fatalf("expected single shard under loose limit, got %d", len(loose))
	}

	tightFacts := Replay(tight)
	looseFacts := Replay(loose)
	if len(tightFacts) != len(looseFacts) {
		t.Fatalf("replay mismatch: tight=%d loose=%d", len(tightFacts), len(looseFacts))
	}
}

func TestChunkAssignsConsecutiveVersions(t *testing.T) {
	ops := makeOps(6, 300)
	shards, err := Chunk(ops, 5, "s1", time.Now(), 500)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	for i, s := range shards {
		want := uint(5 + i)
		if s.ShardVersion != want {
			t.Errorf("shard %d: expected version %d, got %d", i, want, s.ShardVersion)
		}
	}
}

func TestChunkNeverDropsOversizedSingleOp(t *testing.T) {
	huge := makeOps(1, 5000)
	shards, err := Chunk(huge, 1, "s1", time.Now(), 500)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(shards) != 1 || len(shards[0].Operations) != 1 {
		t.Fatalf("expected the oversized op to still go out as its own shard, got %+v", shards)
	}
}

func TestReplayUpsertThenDelete(t *testing.T) {
	now := time.Now()
	shards := []model.Shard{
		New([]model.ShardOperation{{Op: model.OpUpsert, Key: "k", Value: "old"}}, 1, "s", now),
		New([]model.ShardOperation{{Op: model.OpDelete, Key: "k"}}, 2, "s", now.Add(time.Second)),
	}
	facts := Replay(shards)
	if len(facts) != 0 {
		t.Fatalf("expected key deleted, got %+v", facts)
	}
}

func TestReplayDeleteThenResurrect(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	shards := []model.Shard{
		New([]model.ShardOperation{{Op: model.OpUpsert, Key: "k", Value: "old"}}, 1, "s", t1),
		New([]model.ShardOperation{{Op: model.OpDelete, Key: "k"}}, 2, "s", t2),
		New([]model.ShardOperation{{Op: model.OpUpsert, Key: "k", Value: "new"}}, 3, "s", t3),
	}
	facts := Replay(shards)
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	f := facts[0]
	if f.Value != "new" {
		t.Errorf("expected value 'new', got %q", f.Value)
	}
	wantCreated := t3.UTC().Format(model.TimeFormat)
	if f.Created != wantCreated {
		t.Errorf("expected created == v3 timestamp %q, got %q", wantCreated, f.Created)
	}
}

func TestReplayPermutationInvariance(t *testing.T) {
	now := time.Now()
	s1 := New([]model.ShardOperation{{Op: model.OpUpsert, Key: "a", Value: "1"}}, 1, "s", now)
	s2 := New([]model.ShardOperation{{Op: model.OpUpsert, Key: "b", Value: "2"}}, 2, "s", now.Add(time.Second))
	s3 := New([]model.ShardOperation{{Op: model.OpDelete, Key: "a"}}, 3, "s", now.Add(2*time.Second))

	order1 := ReplayOrdered([]model.Shard{s3, s1, s2})
	order2 := ReplayOrdered([]model.Shard{s2, s3, s1})

	if len(order1) != len(order2) {
		t.Fatalf("permutation mismatch: %d vs %d", len(order1), len(order2))
	}
	if len(order1) != 1 || order1[0].Key != "b" {
		t.Fatalf("expected only 'b' to survive, got %+v", order1)
	}
}
