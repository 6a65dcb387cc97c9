package dict

import (
	"bytes"
	"testing"
)

var sampleStrings = []string{
	"http://example.org/a",
	"http://example.org/b",
	"http://example.org/bb",
	"http://example.org/c",
	"http://example.org/car",
	"http://example.org/cart",
	"http://example.org/d",
	"http://example.org/dog",
	"http://example.org/dogma",
	"http://example.org/e",
}

func buildSample(blockSize uint64) *RAM {
	b := NewBuilder(blockSize)
	for _, s := range sampleStrings {
		b.Add(s)
	}
	return b.Freeze()
}

func TestIDToStringAndBack(t *testing.T) {
	for _, blockSize := range []uint64{1, 2, 4, 16} {
		sec := buildSample(blockSize)
		for i, want := range sampleStrings {
			id := uint64(i + 1)
			got, err := sec.IDToString(id)
			if err != nil {
				t.Fatalf("block=%d IDToString(%d): %v", blockSize, id, err)
			}
			if got != want {
				t.Fatalf("block=%d IDToString(%d) = %q, want %q", blockSize, id, got, want)
			}
			gotID, err := sec.StringToID(want)
			if err != nil {
				t.Fatalf("block=%d StringToID(%q): %v", blockSize, want, err)
			}
			if gotID != id {
				t.Fatalf("block=%d StringToID(%q) = %d, want %d", blockSize, want, gotID, id)
			}
		}
	}
}

func TestStringToIDAbsent(t *testing.T) {
	sec := buildSample(4)
	for _, s := range []string{"", "zzz", "http://example.org/", "http://example.org/ca"} {
		id, err := sec.StringToID(s)
		if err != nil {
			t.Fatalf("StringToID(%q): %v", s, err)
		}
		if id != 0 {
			t.Errorf("StringToID(%q) = %d, want 0", s, id)
		}
	}
}

func TestIDToStringOutOfRange(t *testing.T) {
	sec := buildSample(4)
	if _, err := sec.IDToString(0); err == nil {
		t.Error("IDToString(0) should fail")
	}
	if _, err := sec.IDToString(uint64(len(sampleStrings) + 1)); err == nil {
		t.Error("IDToString(n+1) should fail")
	}
}

func TestEmptySection(t *testing.T) {
	b := NewBuilder(8)
	sec := b.Freeze()
	if sec.NumStrings() != 0 {
		t.Fatalf("NumStrings() = %d, want 0", sec.NumStrings())
	}
	id, err := sec.StringToID("anything")
	if err != nil || id != 0 {
		t.Fatalf("StringToID on empty section = (%d,%v), want (0,nil)", id, err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	sec := buildSample(4)
	var buf bytes.Buffer
	if _, err := sec.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	for i, want := range sampleStrings {
		s, err := got.IDToString(uint64(i + 1))
		if err != nil {
			t.Fatalf("IDToString(%d): %v", i+1, err)
		}
		if s != want {
			t.Errorf("IDToString(%d) = %q, want %q", i+1, s, want)
		}
	}
}

func TestFourSectionDictionary(t *testing.T) {
	b := NewDictionaryBuilder(4)
	triples := [][3]string{
		{"http://ex.org/alice", "http://ex.org/knows", "http://ex.org/bob"},
		{"http://ex.org/bob", "http://ex.org/knows", "http://ex.org/alice"},
		{"http://ex.org/alice", "http://ex.org/name", "Alice"},
	}
	for _, tr := range triples {
		b.AddTriple(tr[0], tr[1], tr[2])
	}
	d := b.Freeze()

	// alice and bob are each used as both subject and object: shared.
	aliceID, err := d.StringToSubjectID("http://ex.org/alice")
	if err != nil || aliceID == 0 {
		t.Fatalf("StringToSubjectID(alice) = (%d,%v)", aliceID, err)
	}
	if d.NumShared() != 2 {
		t.Fatalf("NumShared() = %d, want 2", d.NumShared())
	}

	str, err := d.SubjectIDToString(aliceID)
	if err != nil || str != "http://ex.org/alice" {
		t.Fatalf("SubjectIDToString(%d) = (%q,%v), want alice", aliceID, str, err)
	}

	// "Alice" the literal is object-only.
	objID, err := d.StringToObjectID("Alice")
	if err != nil || objID == 0 {
		t.Fatalf("StringToObjectID(Alice) = (%d,%v)", objID, err)
	}
	if objID <= d.NumShared() {
		t.Errorf("object-only string resolved into the shared id range: %d <= %d", objID, d.NumShared())
	}

	predID, err := d.StringToPredicateID("http://ex.org/knows")
	if err != nil || predID == 0 {
		t.Fatalf("StringToPredicateID(knows) = (%d,%v)", predID, err)
	}
}
