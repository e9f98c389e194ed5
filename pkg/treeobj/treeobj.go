package treeobj

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cuemby/kvsd/pkg/blobref"
)

// Type names the five treeobj record kinds.
type Type string

const (
	Val     Type = "val"
	Valref  Type = "valref"
	Dir     Type = "dir"
	Dirref  Type = "dirref"
	Symlink Type = "symlink"
)

// Version is the only treeobj encoding version kvsd understands.
const Version = 1

// ErrBadEncoding is wrapped by any error returned from Decode when the
// input is not a schema-valid treeobj encoding.
var ErrBadEncoding = errors.New("treeobj: bad encoding")

// ErrInvalidArgument is wrapped by constructor/mutator errors caused by
// caller-supplied data that cannot form a valid treeobj.
var ErrInvalidArgument = errors.New("treeobj: invalid argument")

// SymlinkData is the decoded form of a symlink treeobj's data field.
type SymlinkData struct {
	Namespace string `json:"namespace,omitempty"`
	Target    string `json:"target"`
}

// Treeobj is a tagged tree-object record. The zero value is not valid;
// use one of the Create* constructors or Decode.
type Treeobj struct {
	ver  int
	typ  Type
	val  []byte              // TypeVal
	refs []blobref.Blobref   // TypeValref, TypeDirref
	dir  map[string]*Treeobj // TypeDir
	link *SymlinkData        // TypeSymlink
}

// GetType returns the treeobj's type tag.
func (o *Treeobj) GetType() Type { return o.typ }

// GetVersion returns the treeobj's version field.
func (o *Treeobj) GetVersion() int { return o.ver }

func (o *Treeobj) IsVal() bool     { return o.typ == Val }
func (o *Treeobj) IsValref() bool  { return o.typ == Valref }
func (o *Treeobj) IsDir() bool     { return o.typ == Dir }
func (o *Treeobj) IsDirref() bool  { return o.typ == Dirref }
func (o *Treeobj) IsSymlink() bool { return o.typ == Symlink }

// CreateDir returns a new, empty dir treeobj.
func CreateDir() *Treeobj {
	return &Treeobj{ver: Version, typ: Dir, dir: map[string]*Treeobj{}}
}

// CreateVal returns a new val treeobj holding b inline. b is copied.
func CreateVal(b []byte) *Treeobj {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Treeobj{ver: Version, typ: Val, val: cp}
}

// CreateValref returns a new valref treeobj over refs, in order. refs must
// be non-empty.
func CreateValref(refs ...blobref.Blobref) (*Treeobj, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: valref requires at least one blobref", ErrInvalidArgument)
	}
	cp := append([]blobref.Blobref(nil), refs...)
	return &Treeobj{ver: Version, typ: Valref, refs: cp}, nil
}

// CreateDirref returns a new dirref treeobj pointing at the dir blob ref.
func CreateDirref(ref blobref.Blobref) (*Treeobj, error) {
	if err := blobref.Validate(string(ref)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return &Treeobj{ver: Version, typ: Dirref, refs: []blobref.Blobref{ref}}, nil
}

// CreateSymlink returns a new symlink treeobj. ns may be empty to mean "no
// cross-namespace target". target must be non-empty.
func CreateSymlink(ns, target string) (*Treeobj, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: symlink target must be non-empty", ErrInvalidArgument)
	}
	return &Treeobj{ver: Version, typ: Symlink, link: &SymlinkData{Namespace: ns, Target: target}}, nil
}

// GetSymlink returns the namespace (possibly empty) and target of a
// symlink treeobj. It panics if o is not a symlink; callers should check
// IsSymlink first, matching the typed-accessor convention used for the
// other Get* methods.
func (o *Treeobj) GetSymlink() (ns, target string) {
	if o.typ != Symlink {
		panic("treeobj: GetSymlink on non-symlink")
	}
	return o.link.Namespace, o.link.Target
}

// DecodeVal returns the raw bytes of a val treeobj.
func (o *Treeobj) DecodeVal() ([]byte, error) {
	if o.typ != Val {
		return nil, fmt.Errorf("%w: DecodeVal on non-val treeobj", ErrInvalidArgument)
	}
	cp := make([]byte, len(o.val))
	copy(cp, o.val)
	return cp, nil
}

// GetCount returns the structural fan-out of o: the number of blobrefs
// for valref/dirref, the number of entries for dir, or 1 for val/symlink.
func (o *Treeobj) GetCount() int {
	switch o.typ {
	case Val, Symlink:
		return 1
	case Valref, Dirref:
		return len(o.refs)
	case Dir:
		return len(o.dir)
	}
	return 0
}

// GetBlobref returns the i'th blobref of a valref or dirref treeobj.
func (o *Treeobj) GetBlobref(i int) (blobref.Blobref, error) {
	if o.typ != Valref && o.typ != Dirref {
		return "", fmt.Errorf("%w: GetBlobref on non-ref treeobj", ErrInvalidArgument)
	}
	if i < 0 || i >= len(o.refs) {
		return "", fmt.Errorf("%w: blobref index %d out of range", ErrInvalidArgument, i)
	}
	return o.refs[i], nil
}

// Blobrefs returns a copy of the blobref array of a valref or dirref
// treeobj, in order.
func (o *Treeobj) Blobrefs() ([]blobref.Blobref, error) {
	if o.typ != Valref && o.typ != Dirref {
		return nil, fmt.Errorf("%w: Blobrefs on non-ref treeobj", ErrInvalidArgument)
	}
	return append([]blobref.Blobref(nil), o.refs...), nil
}

// GetEntry returns the named child of a dir treeobj, or nil if absent.
func (o *Treeobj) GetEntry(name string) (*Treeobj, error) {
	if o.typ != Dir {
		return nil, fmt.Errorf("%w: GetEntry on non-dir treeobj", ErrInvalidArgument)
	}
	return o.dir[name], nil
}

// DirKeys returns the sorted names of a dir treeobj's entries.
func (o *Treeobj) DirKeys() ([]string, error) {
	if o.typ != Dir {
		return nil, fmt.Errorf("%w: DirKeys on non-dir treeobj", ErrInvalidArgument)
	}
	keys := make([]string, 0, len(o.dir))
	for k := range o.dir {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// insertEntry is the shared implementation behind InsertEntry and
// InsertEntryNoValidate.
func (o *Treeobj) insertEntry(name string, child *Treeobj) (*Treeobj, error) {
	if o.typ != Dir {
		return nil, fmt.Errorf("%w: InsertEntry on non-dir treeobj", ErrInvalidArgument)
	}
	if strings.Contains(name, ".") || name == "" {
		return nil, fmt.Errorf("%w: dir entry name %q must be non-empty and contain no '.'", ErrInvalidArgument, name)
	}
	out := o.Copy()
	out.dir[name] = child
	return out, nil
}

// InsertEntry returns a shallow copy of the dir o with name bound to
// child, re-validating child first. The original o is unchanged.
func (o *Treeobj) InsertEntry(name string, child *Treeobj) (*Treeobj, error) {
	if err := Validate(child); err != nil {
		return nil, err
	}
	return o.insertEntry(name, child)
}

// InsertEntryNoValidate is InsertEntry without re-validating child. It is
// a performance optimization for callers that can prove child is already
// valid (e.g. it was just produced by a Create* constructor or Decode);
// misuse can introduce an invalid treeobj into the tree.
func (o *Treeobj) InsertEntryNoValidate(name string, child *Treeobj) (*Treeobj, error) {
	return o.insertEntry(name, child)
}

// DeleteEntry returns a shallow copy of the dir o with name removed. It is
// not an error for name to be absent.
func (o *Treeobj) DeleteEntry(name string) (*Treeobj, error) {
	if o.typ != Dir {
		return nil, fmt.Errorf("%w: DeleteEntry on non-dir treeobj", ErrInvalidArgument)
	}
	out := o.Copy()
	delete(out.dir, name)
	return out, nil
}

// AppendBlobref returns a copy of the valref or dirref treeobj o with ref
// appended to its blobref array.
func AppendBlobref(o *Treeobj, ref blobref.Blobref) (*Treeobj, error) {
	if o.typ != Valref && o.typ != Dirref {
		return nil, fmt.Errorf("%w: AppendBlobref on non-ref treeobj", ErrInvalidArgument)
	}
	if err := blobref.Validate(string(ref)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	out := o.Copy()
	out.refs = append(out.refs, ref)
	if out.typ == Dirref && len(out.refs) != 1 {
		return nil, fmt.Errorf("%w: dirref must reference exactly one blob", ErrInvalidArgument)
	}
	return out, nil
}

// CreateValrefBuf splits b into pieces no larger than maxblob (the whole
// buffer if maxblob <= 0), hashes each piece with the named algorithm, and
// returns a valref over the resulting blobrefs in concatenation order. A
// zero-length b still yields a single-element valref over the empty blob.
func CreateValrefBuf(name string, maxblob int, b []byte) (*Treeobj, error) {
	if maxblob <= 0 {
		maxblob = len(b)
		if maxblob == 0 {
			maxblob = 1
		}
	}
	var refs []blobref.Blobref
	if len(b) == 0 {
		r, err := blobref.Hash(name, nil)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	for off := 0; off < len(b); off += maxblob {
		end := off + maxblob
		if end > len(b) {
			end = len(b)
		}
		r, err := blobref.Hash(name, b[off:end])
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return CreateValref(refs...)
}

// Copy returns a structural clone of o. For a dir, the name->child mapping
// is copied shallowly: the caller may freely InsertEntry/DeleteEntry on
// the result without affecting o or its children, but leaf children
// themselves are shared between o and the copy. For other types Copy
// behaves like DeepCopy since their data is never mutated in place.
func (o *Treeobj) Copy() *Treeobj {
	out := &Treeobj{ver: o.ver, typ: o.typ}
	switch o.typ {
	case Val:
		out.val = append([]byte(nil), o.val...)
	case Valref, Dirref:
		out.refs = append([]blobref.Blobref(nil), o.refs...)
	case Dir:
		out.dir = make(map[string]*Treeobj, len(o.dir))
		for k, v := range o.dir {
			out.dir[k] = v
		}
	case Symlink:
		ns, target := o.link.Namespace, o.link.Target
		out.link = &SymlinkData{Namespace: ns, Target: target}
	}
	return out
}

// DeepCopy returns a fully recursive clone of o: every dir descendant is
// itself copied rather than shared.
func (o *Treeobj) DeepCopy() *Treeobj {
	out := o.Copy()
	if o.typ == Dir {
		for k, v := range o.dir {
			out.dir[k] = v.DeepCopy()
		}
	}
	return out
}

// Equal reports whether a and b describe the same treeobj, independent of
// Go map iteration order. It is used in place of reflect.DeepEqual on
// decoded structures, which is equivalent but gives a less useful failure
// message (original_source's test suite used a dedicated deep-equal
// helper for the same reason).
func Equal(a, b *Treeobj) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ver != b.ver || a.typ != b.typ {
		return false
	}
	switch a.typ {
	case Val:
		return bytes.Equal(a.val, b.val)
	case Valref, Dirref:
		if len(a.refs) != len(b.refs) {
			return false
		}
		for i := range a.refs {
			if a.refs[i] != b.refs[i] {
				return false
			}
		}
		return true
	case Dir:
		if len(a.dir) != len(b.dir) {
			return false
		}
		for k, av := range a.dir {
			bv, ok := b.dir[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case Symlink:
		return *a.link == *b.link
	}
	return false
}

// Validate recursively checks o against the invariants in spec.md §3.2.
func Validate(o *Treeobj) error {
	if o == nil {
		return fmt.Errorf("%w: nil treeobj", ErrInvalidArgument)
	}
	if o.ver != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrBadEncoding, o.ver)
	}
	switch o.typ {
	case Val:
		return nil
	case Valref:
		if len(o.refs) == 0 {
			return fmt.Errorf("%w: valref has no blobrefs", ErrBadEncoding)
		}
		return validateRefs(o.refs)
	case Dirref:
		if len(o.refs) != 1 {
			return fmt.Errorf("%w: dirref must have exactly one blobref, got %d", ErrBadEncoding, len(o.refs))
		}
		return validateRefs(o.refs)
	case Symlink:
		if o.link == nil || o.link.Target == "" {
			return fmt.Errorf("%w: symlink target must be non-empty", ErrBadEncoding)
		}
		return nil
	case Dir:
		for name, child := range o.dir {
			if name == "" || strings.Contains(name, ".") {
				return fmt.Errorf("%w: dir entry name %q invalid", ErrBadEncoding, name)
			}
			if err := Validate(child); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrBadEncoding, o.typ)
	}
}

func validateRefs(refs []blobref.Blobref) error {
	for _, r := range refs {
		if err := blobref.Validate(string(r)); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEncoding, err)
		}
	}
	return nil
}

// wireObj is the JSON shape used only for Decode; Encode builds its own
// bytes directly so that key order (ver, type, data) and dir key sort
// order are exactly reproducible, which Decode does not need to care
// about since encoding/json is order-insensitive on input.
type wireObj struct {
	Ver  int             `json:"ver"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode produces o's canonical, deterministic JSON encoding.
func Encode(o *Treeobj) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil treeobj", ErrInvalidArgument)
	}
	var data []byte
	var err error
	switch o.typ {
	case Val:
		data, err = json.Marshal(o.val) // []byte marshals as base64 string
	case Valref, Dirref:
		strs := make([]string, len(o.refs))
		for i, r := range o.refs {
			strs[i] = string(r)
		}
		data, err = json.Marshal(strs)
	case Dir:
		data, err = encodeDir(o.dir)
	case Symlink:
		data, err = encodeSymlink(o.link)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidArgument, o.typ)
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"ver":`)
	verB, _ := json.Marshal(o.ver)
	buf.Write(verB)
	buf.WriteString(`,"type":`)
	typeB, _ := json.Marshal(string(o.typ))
	buf.Write(typeB)
	buf.WriteString(`,"data":`)
	buf.Write(data)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeDir(dir map[string]*Treeobj) ([]byte, error) {
	keys := make([]string, 0, len(dir))
	for k := range dir {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		childB, err := Encode(dir[k])
		if err != nil {
			return nil, err
		}
		buf.Write(childB)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeSymlink(link *SymlinkData) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if link.Namespace != "" {
		buf.WriteString(`"namespace":`)
		nsB, err := json.Marshal(link.Namespace)
		if err != nil {
			return nil, err
		}
		buf.Write(nsB)
		buf.WriteByte(',')
	}
	buf.WriteString(`"target":`)
	tB, err := json.Marshal(link.Target)
	if err != nil {
		return nil, err
	}
	buf.Write(tB)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode parses and validates b as a treeobj encoding. Any failure is
// reported wrapping ErrBadEncoding, distinct from ErrInvalidArgument.
func Decode(b []byte) (*Treeobj, error) {
	var w wireObj
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	o, err := decodeWith(w)
	if err != nil {
		return nil, err
	}
	if err := Validate(o); err != nil {
		return nil, err
	}
	return o, nil
}

func decodeWith(w wireObj) (*Treeobj, error) {
	o := &Treeobj{ver: w.Ver, typ: Type(w.Type)}
	switch o.typ {
	case Val:
		var encoded string
		if err := json.Unmarshal(w.Data, &encoded); err != nil {
			return nil, fmt.Errorf("%w: val data not a string: %v", ErrBadEncoding, err)
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: val data not valid base64: %v", ErrBadEncoding, err)
		}
		o.val = raw
	case Valref, Dirref:
		var strs []string
		if err := json.Unmarshal(w.Data, &strs); err != nil {
			return nil, fmt.Errorf("%w: ref data not a string array: %v", ErrBadEncoding, err)
		}
		o.refs = make([]blobref.Blobref, len(strs))
		for i, s := range strs {
			o.refs[i] = blobref.Blobref(s)
		}
	case Dir:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(w.Data, &raw); err != nil {
			return nil, fmt.Errorf("%w: dir data not an object: %v", ErrBadEncoding, err)
		}
		o.dir = make(map[string]*Treeobj, len(raw))
		for name, childRaw := range raw {
			var childW wireObj
			if err := json.Unmarshal(childRaw, &childW); err != nil {
				return nil, fmt.Errorf("%w: dir entry %q: %v", ErrBadEncoding, name, err)
			}
			child, err := decodeWith(childW)
			if err != nil {
				return nil, err
			}
			o.dir[name] = child
		}
	case Symlink:
		var link SymlinkData
		if err := json.Unmarshal(w.Data, &link); err != nil {
			return nil, fmt.Errorf("%w: symlink data malformed: %v", ErrBadEncoding, err)
		}
		o.link = &link
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrBadEncoding, w.Type)
	}
	return o, nil
}
