package object

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/go-lofar-dal/internal/alloc"
	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

// minContChunk is the smallest continuation chunk allocated.
const minContChunk = 256

type encoded struct {
	typ   message.Type
	flags uint8
	order uint16
	body  []byte
}

// Create allocates and writes a new version 2 header holding msgs. The
// first chunk gets slack spare bytes so later attributes and links can be
// added without a continuation chunk.
func Create(w io.WriterAt, a *alloc.Allocator, cfg bin.Config, msgs []message.Message, slack int) (*Header, error) {
	h := &Header{Version: 2, RefCount: 1}
	for _, m := range msgs {
		h.Add(m)
	}
	enc, err := h.encodeAll(cfg)
	if err != nil {
		return nil, err
	}
	data := slack
	for _, e := range enc {
		data += h.msgHeaderLen() + len(e.body)
	}
	width := sizeWidth(uint64(data))
	h.Flags = sizeFlag(width)
	total := uint64(6 + width + data + 4)
	h.Address = a.Alloc(total)
	h.Chunks = []Chunk{{Address: h.Address, Size: total}}
	if err := h.write(w, a, cfg, enc); err != nil {
		return nil, err
	}
	return h, nil
}

// Flush re-encodes the message list and writes it back, keeping the first
// chunk at its address.
func (h *Header) Flush(w io.WriterAt, a *alloc.Allocator, cfg bin.Config) error {
	if h.Version != 2 {
		return fmt.Errorf("%w: version %d at %#x", ErrReadOnly, h.Version, h.Address)
	}
	enc, err := h.encodeAll(cfg)
	if err != nil {
		return err
	}
	return h.write(w, a, cfg, enc)
}

func (h *Header) encodeAll(cfg bin.Config) ([]encoded, error) {
	out := make([]encoded, 0, len(h.Entries))
	for _, e := range h.Entries {
		body, err := message.Encode(e.Msg, cfg)
		if err != nil {
			return nil, fmt.Errorf("object header at %#x: %w", h.Address, err)
		}
		out = append(out, encoded{typ: e.Msg.Type(), flags: e.Flags, order: e.Order, body: body})
	}
	return out, nil
}

func (h *Header) write(w io.WriterAt, a *alloc.Allocator, cfg bin.Config, enc []encoded) error {
	hl := h.msgHeaderLen()
	width := 1 << (h.Flags & flagSizeMask)
	c0 := h.Chunks[0]
	fixed := 6 + len(h.prefix) + width
	cap0 := int(c0.Size) - fixed - 4

	total := 0
	for _, e := range enc {
		total += hl + len(e.body)
	}
	first, rest := enc, []encoded(nil)
	if total > cap0 {
		contLen := hl + cfg.OffsetSize + cfg.LengthSize
		used, i := 0, 0
		for i < len(enc) && used+hl+len(enc[i].body)+contLen <= cap0 {
			used += hl + len(enc[i].body)
			i++
		}
		first, rest = enc[:i], enc[i:]
	}

	old := h.Chunks[1:]
	var cont *Chunk
	if len(rest) > 0 {
		need := uint64(8)
		for _, e := range rest {
			need += uint64(hl + len(e.body))
		}
		if len(old) > 0 && old[0].Size >= need {
			cont = &Chunk{Address: old[0].Address, Size: old[0].Size}
			old = old[1:]
		} else {
			size := max(2*need, minContChunk)
			cont = &Chunk{Address: a.Alloc(size), Size: size}
		}
	}

	b := bin.NewBuffer(cfg)
	b.PutString(signature)
	b.PutUint8(2)
	b.PutUint8(h.Flags)
	b.PutBytes(h.prefix)
	b.PutUintN(uint64(cap0), width)
	for _, e := range first {
		h.putMessage(b, e)
	}
	if cont != nil {
		body, err := message.Encode(&message.Continuation{Address: cont.Address, Length: cont.Size}, cfg)
		if err != nil {
			return err
		}
		h.putMessage(b, encoded{typ: message.TypeContinuation, body: body})
	}
	if err := h.fill(b, fixed+cap0); err != nil {
		return err
	}
	b.PutChecksum(0)
	if _, err := w.WriteAt(b.Bytes(), int64(c0.Address)); err != nil {
		return fmt.Errorf("writing object header at %#x: %w", c0.Address, err)
	}

	for _, c := range old {
		a.Free(c.Address, c.Size)
	}
	h.Chunks = h.Chunks[:1]
	if cont == nil {
		return nil
	}

	b.Reset()
	b.PutString(contSignature)
	for _, e := range rest {
		h.putMessage(b, e)
	}
	if err := h.fill(b, int(cont.Size)-4); err != nil {
		return err
	}
	b.PutChecksum(0)
	if _, err := w.WriteAt(b.Bytes(), int64(cont.Address)); err != nil {
		return fmt.Errorf("writing continuation chunk at %#x: %w", cont.Address, err)
	}
	h.Chunks = append(h.Chunks, *cont)
	return nil
}

func (h *Header) putMessage(b *bin.Buffer, e encoded) {
	b.PutUint8(uint8(e.typ))
	b.PutUint16(uint16(len(e.body)))
	b.PutUint8(e.flags)
	if h.Flags&flagTrackOrder != 0 {
		b.PutUint16(e.order)
	}
	b.PutBytes(e.body)
}

// fill pads the buffer to end with NIL messages. A remainder smaller than
// a message header is left as a zeroed gap.
func (h *Header) fill(b *bin.Buffer, end int) error {
	if b.Len() > end {
		return fmt.Errorf("%w: chunk overflow at %#x", ErrInvalidHeader, h.Address)
	}
	hl := h.msgHeaderLen()
	for end-b.Len() >= hl {
		n := min(end-b.Len()-hl, message.MaxSize)
		h.putMessage(b, encoded{typ: message.TypeNil, body: make([]byte, n)})
	}
	b.PutZeros(end - b.Len())
	return nil
}

func sizeWidth(n uint64) int {
	switch {
	case n <= 0xFF:
		return 1
	case n <= 0xFFFF:
		return 2
	case n <= 0xFFFFFFFF:
		return 4
	}
	return 8
}

func sizeFlag(width int) uint8 {
	switch width {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	}
	return 3
}
