package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

// Pipeline applies a dataset's filters to its chunks.
type Pipeline struct {
	filters  []Filter
	optional []bool
}

// NewPipeline builds the pipeline described by fp. A nil message yields an
// empty pipeline.
func NewPipeline(fp *message.FilterPipeline, elemSize int) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		f, err := New(info, elemSize)
		if err != nil {
			return nil, err
		}
		// Unknown optional filters keep their slot so mask bits line up.
		p.filters = append(p.filters, f)
		p.optional = append(p.optional, info.Optional())
	}
	return p, nil
}

func (p *Pipeline) Empty() bool { return len(p.filters) == 0 }

func (p *Pipeline) Len() int { return len(p.filters) }

// Encode runs p through every filter in order. An optional filter that
// fails or is unavailable is skipped and its bit set in the returned mask.
func (p *Pipeline) Encode(data []byte) ([]byte, uint32, error) {
	var mask uint32
	for i, f := range p.filters {
		if f == nil {
			mask |= 1 << uint(i)
			continue
		}
		out, err := f.Encode(data)
		if err != nil {
			if p.optional[i] {
				mask |= 1 << uint(i)
				continue
			}
			return nil, 0, fmt.Errorf("%s encode: %w", Name(f.ID()), err)
		}
		data = out
	}
	return data, mask, nil
}

// Decode reverses Encode, skipping filters whose bit is set in mask.
func (p *Pipeline) Decode(data []byte, mask uint32) ([]byte, error) {
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		f := p.filters[i]
		if f == nil {
			return nil, fmt.Errorf("%w: optional filter %d was applied to this chunk", ErrUnsupported, i)
		}
		out, err := f.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s decode: %w", Name(f.ID()), err)
		}
		data = out
	}
	return data, nil
}
