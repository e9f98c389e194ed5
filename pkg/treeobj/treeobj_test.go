package treeobj

import (
	"testing"

	"github.com/cuemby/kvsd/pkg/blobref"
)

func mustBlobref(t *testing.T, s string) blobref.Blobref {
	t.Helper()
	r, err := blobref.Hash(blobref.SHA1, []byte(s))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	return r
}

func TestRoundTrip(t *testing.T) {
	ref := mustBlobref(t, "a")

	dir := CreateDir()
	dir, err := dir.InsertEntryNoValidate("b", CreateVal([]byte("hi")))
	if err != nil {
		t.Fatalf("InsertEntryNoValidate() error = %v", err)
	}

	valref, err := CreateValref(ref)
	if err != nil {
		t.Fatalf("CreateValref() error = %v", err)
	}
	dirref, err := CreateDirref(ref)
	if err != nil {
		t.Fatalf("CreateDirref() error = %v", err)
	}
	link, err := CreateSymlink("", "a.b")
	if err != nil {
		t.Fatalf("CreateSymlink() error = %v", err)
	}

	objs := []*Treeobj{dir, CreateVal([]byte("hi")), valref, dirref, link}
	for _, o := range objs {
		enc, err := Encode(o)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		dec, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !Equal(o, dec) {
			t.Errorf("round trip mismatch: %s -> %+v", enc, dec)
		}

		enc2, err := Encode(dec)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if string(enc) != string(enc2) {
			t.Errorf("Encode() not deterministic: %s != %s", enc, enc2)
		}
	}
}

func TestEncodeDeterministicKeyOrder(t *testing.T) {
	d1 := CreateDir()
	d1, _ = d1.InsertEntryNoValidate("z", CreateVal([]byte("1")))
	d1, _ = d1.InsertEntryNoValidate("a", CreateVal([]byte("2")))

	d2 := CreateDir()
	d2, _ = d2.InsertEntryNoValidate("a", CreateVal([]byte("2")))
	d2, _ = d2.InsertEntryNoValidate("z", CreateVal([]byte("1")))

	e1, err := Encode(d1)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	e2, err := Encode(d2)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(e1) != string(e2) {
		t.Errorf("Encode() order-dependent: %s != %s", e1, e2)
	}
}

func TestDecodeRejectsBadEncoding(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", "not json at all"},
		{"bad base64", `{"ver":1,"type":"val","data":"***"}`},
		{"empty valref", `{"ver":1,"type":"valref","data":[]}`},
		{"dirref with two refs", `{"ver":1,"type":"dirref","data":["sha1-` + string(mustHex()) + `","sha1-` + string(mustHex()) + `"]}`},
		{"bad blobref in valref", `{"ver":1,"type":"valref","data":["not-a-blobref"]}`},
		{"dir key with dot", `{"ver":1,"type":"dir","data":{"a.b":{"ver":1,"type":"val","data":""}}}`},
		{"unknown type", `{"ver":1,"type":"bogus","data":null}`},
		{"wrong version", `{"ver":2,"type":"val","data":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.in)); err == nil {
				t.Errorf("Decode(%q) succeeded, want error", tt.in)
			}
		})
	}
}

func mustHex() string {
	// 40 hex chars, a valid-looking sha1 digest body.
	return "0123456789abcdef0123456789abcdef01234567"
}

func TestCopyIsShallowForDir(t *testing.T) {
	dir := CreateDir()
	dir, _ = dir.InsertEntryNoValidate("a", CreateVal([]byte("1")))

	cp := dir.Copy()
	cp, _ = cp.InsertEntryNoValidate("b", CreateVal([]byte("2")))

	if _, err := dir.GetEntry("b"); err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if got, _ := dir.GetEntry("b"); got != nil {
		t.Errorf("original dir mutated by copy's InsertEntry")
	}
	if got, _ := cp.GetEntry("b"); got == nil {
		t.Errorf("copy missing inserted entry")
	}
}

func TestCreateValrefBufChunking(t *testing.T) {
	data := []byte("abcdefghij")
	vo, err := CreateValrefBuf(blobref.SHA1, 4, data)
	if err != nil {
		t.Fatalf("CreateValrefBuf() error = %v", err)
	}
	refs, err := vo.Blobrefs()
	if err != nil {
		t.Fatalf("Blobrefs() error = %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("got %d chunks, want 3", len(refs))
	}
}

func TestCreateValrefBufEmpty(t *testing.T) {
	vo, err := CreateValrefBuf(blobref.SHA1, 0, nil)
	if err != nil {
		t.Fatalf("CreateValrefBuf() error = %v", err)
	}
	if vo.GetCount() != 1 {
		t.Errorf("empty buf GetCount() = %d, want 1", vo.GetCount())
	}
}

func TestAppendBlobrefRejectsSecondDirrefEntry(t *testing.T) {
	ref := mustBlobref(t, "x")
	dirref, err := CreateDirref(ref)
	if err != nil {
		t.Fatalf("CreateDirref() error = %v", err)
	}
	if _, err := AppendBlobref(dirref, ref); err == nil {
		t.Errorf("AppendBlobref() on dirref succeeded, want error")
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{".", ".", false},
		{"a.b.c", "a.b.c", false},
		{"..a..b..", "a.b", false},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeKey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeKey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
