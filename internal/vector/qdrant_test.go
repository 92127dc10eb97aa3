package vector

import (
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestPayloadFromQdrant(t *testing.T) {
	want := ChunkPayload(12, "report.pdf", 4, "fourth chunk")
	got, err := PayloadFromQdrant(qdrant.NewValueMap(want.Map()))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestPayloadFromQdrant_MissingField(t *testing.T) {
	for _, key := range []string{KeyFileID, KeyFilename, KeyIsDocLevel, KeyChunkIndex, KeyText} {
		t.Run(key, func(t *testing.T) {
			m := DocLevelPayload(3, "a.txt", "summary").Map()
			delete(m, key)
			_, err := PayloadFromQdrant(qdrant.NewValueMap(m))
			if !errors.Is(err, ErrMissingPayloadField) {
				t.Errorf("err = %v, want ErrMissingPayloadField", err)
			}
		})
	}
}

func TestPayloadFromQdrant_Inconsistent(t *testing.T) {
	m := DocLevelPayload(3, "a.txt", "summary").Map()
	m[KeyChunkIndex] = int64(2)
	if _, err := PayloadFromQdrant(qdrant.NewValueMap(m)); err == nil {
		t.Error("expected validation error for doc-level point with chunk index 2")
	}
}

func TestFileIDFilter(t *testing.T) {
	f := fileIDFilter(42)
	if len(f.GetMust()) != 1 {
		t.Fatalf("must conditions = %d", len(f.GetMust()))
	}
	field := f.GetMust()[0].GetField()
	if field.GetKey() != KeyFileID || field.GetMatch().GetInteger() != 42 {
		t.Errorf("condition = %+v", field)
	}
}
