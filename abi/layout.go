package abi

// Field describes one member of a C-ABI struct: its size and alignment in
// bytes, both powers of two for anything this package lays out.
type Field struct {
	Name  string
	Size  uint32
	Align uint32
}

// U8, U16, U32, U64 are the primitive field descriptors used to build the
// WASI structs (prestat, fdstat, dirent, filestat, subscription, event).
var (
	U8  = Field{Size: 1, Align: 1}
	U16 = Field{Size: 2, Align: 2}
	U32 = Field{Size: 4, Align: 4}
	U64 = Field{Size: 8, Align: 8}
)

func named(f Field, name string) Field {
	f.Name = name
	return f
}

// Offset is a laid-out field: its byte offset within the enclosing struct
// plus the Field descriptor that produced it.
type Offset struct {
	Field
	Offset uint32
}

// Struct is the result of applying the layout algorithm to an ordered list
// of fields: C's default layout, least surprising for structs shared with a
// WASI guest compiled from C, Rust, or Zig.
type Struct struct {
	Fields []Offset
	Size   uint32
	Align  uint32
}

// NewStruct computes offsets for fields in declaration order: round the
// running offset up to each field's alignment, place it, advance by its
// size, and track the maximum field alignment as the struct's own
// alignment. The final size is rounded up to that alignment. This matches
// spec 4.A's layout algorithm and reproduces C's default struct packing.
func NewStruct(fields ...Field) Struct {
	var s Struct
	var offset uint32
	for _, f := range fields {
		offset = alignUp(offset, f.Align)
		s.Fields = append(s.Fields, Offset{Field: f, Offset: offset})
		offset += f.Size
		if f.Align > s.Align {
			s.Align = f.Align
		}
	}
	if s.Align == 0 {
		s.Align = 1
	}
	s.Size = alignUp(offset, s.Align)
	return s
}

func alignUp(offset, align uint32) uint32 {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Off returns the offset of the named field, or 0, false if no such field
// was declared.
func (s Struct) Off(name string) (uint32, bool) {
	for _, o := range s.Fields {
		if o.Name == name {
			return o.Offset, true
		}
	}
	return 0, false
}

// Prestat is WASI's prestat struct: {i8 type, u32 name_len}, size 8 because
// name_len (align 4) rounds the tag field up past its natural 1-byte
// placement.
var Prestat = NewStruct(named(U8, "type"), named(U32, "name_len"))

// Fdstat is WASI's fdstat struct: {u8 filetype, u16 flags, u64 rights_base,
// u64 rights_inheriting}, size 24.
var Fdstat = NewStruct(
	named(U8, "filetype"),
	named(U16, "fdflags"),
	named(U64, "fs_rights_base"),
	named(U64, "fs_rights_inheriting"),
)

// Dirent is WASI's dirent struct: {u64 next, u64 ino, u32 name_len, u8
// type}, size 24 (trailing pad to the struct's own 8-byte alignment).
var Dirent = NewStruct(
	named(U64, "d_next"),
	named(U64, "d_ino"),
	named(U32, "d_namlen"),
	named(U8, "d_type"),
)

// Filestat is WASI's filestat struct: {u64 dev, u64 ino, u8 filetype, u64
// nlink, u64 size, u64 atim, u64 mtim, u64 ctim}.
var Filestat = NewStruct(
	named(U64, "dev"),
	named(U64, "ino"),
	named(U8, "filetype"),
	named(U64, "nlink"),
	named(U64, "size"),
	named(U64, "atim"),
	named(U64, "mtim"),
	named(U64, "ctim"),
)

// Iovec is WASI's iovec struct: {u32 buf, u32 buf_len}, size 8.
var Iovec = NewStruct(named(U32, "buf"), named(U32, "buf_len"))

// Union describes a tagged union laid out as [tag, pad-to-union-align,
// union] per spec 4.A: "union size = max(variant.size) rounded to union
// alignment". Used for WASI's subscription and event structs, whose
// variant contents depend on a preceding tag byte rather than on a fixed
// field list, so they cannot be expressed as a single Struct.
type Union struct {
	// TagOffset is always 0: the tag is the first member.
	TagOffset uint32
	// UnionOffset is the tag's size rounded up to the union's own
	// alignment (the "pad-to-union-align" of spec 4.A).
	UnionOffset uint32
	// Size is the union member's total size, including the tag and any
	// padding, rounded up to Align.
	Size uint32
	// Align is the union's own alignment: the maximum of the tag's and
	// every variant's alignment.
	Align uint32
}

// NewUnion computes a Union's layout from its tag field and the size/align
// of each variant payload (by convention, pass Struct.Size/Struct.Align
// when a variant is itself a multi-field struct).
func NewUnion(tag Field, variants ...Field) Union {
	align := tag.Align
	var maxVariant uint32
	for _, v := range variants {
		if v.Align > align {
			align = v.Align
		}
		if v.Size > maxVariant {
			maxVariant = v.Size
		}
	}
	unionOff := alignUp(tag.Size, align)
	size := alignUp(unionOff+maxVariant, align)
	return Union{UnionOffset: unionOff, Size: size, Align: align}
}
