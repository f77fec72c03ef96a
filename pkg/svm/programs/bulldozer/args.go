package bulldozer

import (
	"encoding/binary"
)

// argWriter encodes instruction arguments: little-endian integers,
// u32-length-prefixed strings and options as a presence byte followed by
// the value when present.
type argWriter struct {
	buf []byte
}

func newArgWriter(d discriminator) *argWriter {
	w := &argWriter{buf: make([]byte, 0, 64)}
	w.buf = append(w.buf, d[:]...)
	return w
}

func (w *argWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *argWriter) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *argWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *argWriter) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *argWriter) str(v string) {
	w.u32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

func (w *argWriter) optionU8(v *uint8) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u8(*v)
}

func (w *argWriter) optionU16(v *uint16) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u16(*v)
}

func (w *argWriter) optionU32(v *uint32) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u32(*v)
}

// argReader decodes arguments. The first failure sticks and every later
// read returns zero values.
type argReader struct {
	data   []byte
	offset int
	err    error
}

func (r *argReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.offset < n {
		r.err = ErrInstructionDidNotDeserialize
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *argReader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *argReader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *argReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *argReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *argReader) str() string {
	n := r.u32()
	if n > maxArgumentString {
		r.err = ErrInstructionDidNotDeserialize
		return ""
	}
	return string(r.take(int(n)))
}

func (r *argReader) present() bool {
	switch r.u8() {
	case 0:
		return false
	case 1:
		return true
	default:
		r.err = ErrInstructionDidNotDeserialize
		return false
	}
}

func (r *argReader) optionU8() *uint8 {
	if !r.present() {
		return nil
	}
	v := r.u8()
	return &v
}

func (r *argReader) optionU16() *uint16 {
	if !r.present() {
		return nil
	}
	v := r.u16()
	return &v
}

func (r *argReader) optionU32() *uint32 {
	if !r.present() {
		return nil
	}
	v := r.u32()
	return &v
}

// done reports the first error, or trailing bytes.
func (r *argReader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.offset != len(r.data) {
		return ErrInstructionDidNotDeserialize
	}
	return nil
}

type instructionArgs interface {
	write(w *argWriter)
	read(r *argReader)
}

func decodeArgs(data []byte, args instructionArgs) error {
	r := &argReader{data: data}
	args.read(r)
	return r.done()
}

type noArgs struct{}

func (noArgs) write(*argWriter) {}
func (noArgs) read(*argReader)  {}

// UserArgs are the profile fields of createUser and updateUser.
type UserArgs struct {
	UserName     string
	Name         string
	ThumbnailURL string
}

func (a *UserArgs) write(w *argWriter) {
	w.str(a.UserName)
	w.str(a.Name)
	w.str(a.ThumbnailURL)
}

func (a *UserArgs) read(r *argReader) {
	a.UserName = r.str()
	a.Name = r.str()
	a.ThumbnailURL = r.str()
}

// NameArgs carries the single name argument of the rename-style operations.
type NameArgs struct {
	Name string
}

func (a *NameArgs) write(w *argWriter) { w.str(a.Name) }
func (a *NameArgs) read(r *argReader)  { a.Name = r.str() }

type DepositArgs struct {
	Amount uint64
}

func (a *DepositArgs) write(w *argWriter) { w.u64(a.Amount) }
func (a *DepositArgs) read(r *argReader)  { a.Amount = r.u64() }

type CollaboratorStatusArgs struct {
	Status uint8
}

func (a *CollaboratorStatusArgs) write(w *argWriter) { w.u8(a.Status) }
func (a *CollaboratorStatusArgs) read(r *argReader)  { a.Status = r.u8() }

type BodyArgs struct {
	Body string
}

func (a *BodyArgs) write(w *argWriter) { w.str(a.Body) }
func (a *BodyArgs) read(r *argReader)  { a.Body = r.str() }

func (d *AttributeDto) write(w *argWriter) {
	w.str(d.Name)
	w.u8(d.Kind)
	w.optionU8(d.Modifier)
	w.optionU32(d.Size)
	w.optionU32(d.Max)
	w.optionU32(d.MaxLength)
}

func (d *AttributeDto) read(r *argReader) {
	d.Name = r.str()
	d.Kind = r.u8()
	d.Modifier = r.optionU8()
	d.Size = r.optionU32()
	d.Max = r.optionU32()
	d.MaxLength = r.optionU32()
}

func (d *AccountDto) write(w *argWriter) {
	w.str(d.Name)
	w.u8(d.Kind)
	w.optionU8(d.Modifier)
	w.optionU16(d.Space)
}

func (d *AccountDto) read(r *argReader) {
	d.Name = r.str()
	d.Kind = r.u8()
	d.Modifier = r.optionU8()
	d.Space = r.optionU16()
}
