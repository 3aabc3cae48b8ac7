package docstore

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"doccopy/internal/document"
)

func TestDocumentID(t *testing.T) {
	t.Parallel()

	oid := bson.NewObjectID()
	if got := documentID(oid); got != oid.Hex() {
		t.Fatalf("documentID(ObjectID) = %q, want %q", got, oid.Hex())
	}
	if got := documentID("custom-id"); got != "custom-id" {
		t.Fatalf("documentID(string) = %q", got)
	}
	if got := documentID(int64(42)); got != "42" {
		t.Fatalf("documentID(int64) = %q", got)
	}

	// A missing _id gets a generated, non-empty, unique id.
	a, b := documentID(nil), documentID(nil)
	if a == "" || b == "" || a == b {
		t.Fatalf("generated ids = %q, %q; want distinct non-empty", a, b)
	}
}

func TestNormalizeBSON(t *testing.T) {
	t.Parallel()

	oid := bson.NewObjectID()
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"passthrough string", "x", "x"},
		{"passthrough int64", int64(5), int64(5)},
		{"object id to hex", oid, oid.Hex()},
		{"datetime to rfc3339", bson.NewDateTimeFromTime(ts), "2024-05-01T12:30:00Z"},
		{"time to rfc3339", ts, "2024-05-01T12:30:00Z"},
		{"null to nil", bson.Null{}, nil},
		{"binary to base64", bson.Binary{Data: []byte("hi")}, "aGk="},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeBSON(tt.in); got != tt.want {
				t.Fatalf("normalizeBSON(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeBSON_Composite(t *testing.T) {
	t.Parallel()

	in := bson.M{
		"tags": bson.A{"a", int32(2)},
		"meta": bson.D{{Key: "n", Value: int64(1)}},
	}
	got, ok := normalizeBSON(in).(map[string]any)
	if !ok {
		t.Fatalf("normalizeBSON(bson.M) = %T, want map[string]any", normalizeBSON(in))
	}

	tags, ok := got["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("tags = %#v", got["tags"])
	}
	meta, ok := got["meta"].(map[string]any)
	if !ok || meta["n"] != int64(1) {
		t.Fatalf("meta = %#v", got["meta"])
	}
}

type captureLogger struct {
	lines []string
}

func (l *captureLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

// A property whose type the classifier cannot handle is logged and
// skipped; its siblings survive and _id is excluded from properties.
func TestEntryFromBSON(t *testing.T) {
	t.Parallel()

	logger := &captureLogger{}
	m := &Mongo{logger: logger}

	oid := bson.NewObjectID()
	raw := bson.M{
		"_id":  oid,
		"name": "ada",
		"age":  int64(36),
		"re":   bson.Regex{Pattern: "x+"}, // unsupported, skipped
	}

	e := m.entryFromBSON("users", raw)

	if e.ID != oid.Hex() {
		t.Fatalf("ID = %q, want %q", e.ID, oid.Hex())
	}
	if _, ok := e.Doc["_id"]; ok {
		t.Fatal("_id must not appear as a document property")
	}
	if _, ok := e.Doc["re"]; ok {
		t.Fatal("unsupported property should have been skipped")
	}
	if got := e.Doc["name"]; got.Kind() != document.KindString || got.Str() != "ada" {
		t.Fatalf("name = %+v", got)
	}
	if got := e.Doc["age"]; got.Kind() != document.KindInt || got.Int64() != 36 {
		t.Fatalf("age = %+v", got)
	}

	if len(logger.lines) != 1 {
		t.Fatalf("log lines = %v, want exactly one skip report", logger.lines)
	}
	if !strings.Contains(logger.lines[0], "property=re") {
		t.Fatalf("skip line %q does not name the property", logger.lines[0])
	}
}
