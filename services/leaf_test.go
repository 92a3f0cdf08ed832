package services

import (
	"testing"
	"time"

	"github.com/johnwonder/presto/common"
	"github.com/johnwonder/presto/operator"
	"github.com/twmb/franz-go/pkg/kgo"
)

func eventsSchema() *common.Schema {
	return &common.Schema{Fields: common.Fields{
		{Name: "name", Type: common.Type{Name: common.Utf8Type}},
		{Name: "count", Type: common.Type{Name: common.LongType}},
		{Name: "amount", Type: common.Type{Name: common.DoubleType}},
		{Name: "payload", Nullable: true, Type: common.Type{Name: common.BytesType}},
	}}
}

func newEventsLeaf(t *testing.T) *Leaf {
	t.Helper()

	leaf, err := NewLeaf("events", eventsSchema(), make(chan Message))
	if err != nil {
		t.Fatal(err)
	}

	return leaf
}

func TestIngestAndSnapshot(t *testing.T) {
	leaf := newEventsLeaf(t)

	if err := leaf.Ingest([]byte(`{"name":"abc","count":1,"amount":0.5,"payload":"aGVsbG8="}`)); err != nil {
		t.Fatal(err)
	}

	if err := leaf.Ingest([]byte(`{"name":"def","count":2,"amount":1.5}`)); err != nil {
		t.Fatal(err)
	}

	if leaf.Size() != 2 {
		t.Fatalf("expected 2 ingested rows, got: %d", leaf.Size())
	}

	snapshot := leaf.Snapshot()

	row, result := snapshot.Advance()
	if result != operator.CursorHasRow {
		t.Fatalf("expected the first row, got: %d", result)
	}

	if row[0] != "abc" || row[1] != int64(1) || row[2] != 0.5 {
		t.Errorf("expected coerced values, got: %v", row)
	}

	if string(row[3].([]byte)) != "hello" {
		t.Errorf("expected the payload to be base64 decoded, got: %v", row[3])
	}

	row, result = snapshot.Advance()
	if result != operator.CursorHasRow || row[0] != "def" {
		t.Fatalf("expected the second row, got: %v (%d)", row, result)
	}

	if row[3] != nil {
		t.Errorf("expected a missing nullable field to be nil, got: %v", row[3])
	}

	// rows ingested after the snapshot stay invisible to it
	if err := leaf.Ingest([]byte(`{"name":"g","count":0,"amount":0}`)); err != nil {
		t.Fatal(err)
	}

	if _, result = snapshot.Advance(); result != operator.CursorEndOfData {
		t.Errorf("expected the snapshot to end after its bound, got: %d", result)
	}
}

func TestIngestRejectsDefectiveRecords(t *testing.T) {
	leaf := newEventsLeaf(t)

	tests := map[string]string{
		"malformed json":     `{"name":`,
		"missing field":      `{"count":1,"amount":0.5}`,
		"mistyped field":     `{"name":"abc","count":"one","amount":0.5}`,
		"non string payload": `{"name":"abc","count":1,"amount":0.5,"payload":7}`,
	}

	for name, value := range tests {
		if err := leaf.Ingest([]byte(value)); err == nil {
			t.Errorf("expected %s to be rejected", name)
		}
	}

	if leaf.Size() != 0 {
		t.Errorf("expected no rows from rejected records, got: %d", leaf.Size())
	}
}

func TestLiveSource(t *testing.T) {
	leaf := newEventsLeaf(t)
	live := leaf.Live()

	if _, result := live.Advance(); result != operator.CursorNotReady {
		t.Fatalf("expected not-ready while caught up with ingestion, got: %d", result)
	}

	if err := leaf.Ingest([]byte(`{"name":"abc","count":1,"amount":0.5}`)); err != nil {
		t.Fatal(err)
	}

	row, result := live.Advance()
	if result != operator.CursorHasRow || row[0] != "abc" {
		t.Fatalf("expected the ingested row, got: %v (%d)", row, result)
	}

	if _, result = live.Advance(); result != operator.CursorNotReady {
		t.Fatalf("expected not-ready again at the log head, got: %d", result)
	}

	leaf.Stop()

	if _, result = live.Advance(); result != operator.CursorEndOfData {
		t.Errorf("expected end of data once the leaf stopped, got: %d", result)
	}
}

func TestProcessConsumesTailerMessages(t *testing.T) {
	input := make(chan Message)
	leaf, err := NewLeaf("events", eventsSchema(), input)
	if err != nil {
		t.Fatal(err)
	}

	leaf.Start()
	defer leaf.Stop()

	input <- Message{Record: &kgo.Record{Value: []byte(`{"name":"abc","count":1,"amount":0.5}`)}}
	input <- Message{Record: &kgo.Record{Value: []byte(`not json`), Offset: 1}}
	input <- Message{Record: &kgo.Record{Value: []byte(`{"name":"def","count":2,"amount":1.5}`), Offset: 2}}

	deadline := time.Now().Add(5 * time.Second)
	for leaf.Size() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 ingested rows before the deadline, got: %d", leaf.Size())
		}

		time.Sleep(time.Millisecond)
	}

	if leaf.Size() != 2 {
		t.Errorf("expected the malformed record to be skipped, got: %d rows", leaf.Size())
	}
}
