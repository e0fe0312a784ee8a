package ipv

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/x448/float16"
)

// ScoreFormat selects the numeric encoding of a raw score stream.
type ScoreFormat int

const (
	// ScoreFloat16 is little-endian IEEE 754 half-precision, the encoding
	// emitted by half-precision classifier checkpoints.
	ScoreFloat16 ScoreFormat = iota
	// ScoreFloat32 is little-endian IEEE 754 single precision.
	ScoreFloat32
)

// ScoreReader decodes per-sample head score vectors from a raw binary
// stream. Each sample occupies one fixed-size record: the concatenated
// score vectors of every head, in head order, with no padding. It lets
// localization run from scores computed by an external model process.
type ScoreReader struct {
	r         *bufio.Reader
	format    ScoreFormat
	headSizes []int
	buf       []byte
}

// NewScoreReader wraps r for decoding. headSizes lists the score vector
// length of every head in stream order, typically two entries per landmark
// sized by the distance and angle tables.
func NewScoreReader(r io.Reader, format ScoreFormat, headSizes []int) (*ScoreReader, error) {

	if len(headSizes) == 0 {
		return nil, &ConfigurationError{
			Field:  "headSizes",
			Reason: "no heads configured",
		}
	}

	total := 0

	for i, n := range headSizes {

		if n < 1 {
			return nil, &ConfigurationError{
				Field:  "headSizes",
				Reason: fmt.Sprintf("head %d has size %d", i, n),
			}
		}

		total += n
	}

	width := 2

	if format == ScoreFloat32 {
		width = 4
	}

	sr := &ScoreReader{
		r:         bufio.NewReader(r),
		format:    format,
		headSizes: append([]int(nil), headSizes...),
		buf:       make([]byte, total*width),
	}

	return sr, nil
}

// Next decodes the next sample's head scores. It returns io.EOF unwrapped
// when the stream ends on a record boundary; a stream ending mid record is
// an error. The returned slices are freshly allocated per call.
func (sr *ScoreReader) Next() ([]HeadScores, error) {

	if _, err := io.ReadFull(sr.r, sr.buf); err != nil {

		if err == io.EOF {
			return nil, io.EOF
		}

		return nil, fmt.Errorf("reading score record: %w", err)
	}

	heads := make([]HeadScores, len(sr.headSizes))
	off := 0

	for i, n := range sr.headSizes {

		head := make(HeadScores, n)

		for j := 0; j < n; j++ {

			switch sr.format {

			case ScoreFloat32:
				bits := binary.LittleEndian.Uint32(sr.buf[off:])
				head[j] = math.Float32frombits(bits)
				off += 4

			default:
				bits := binary.LittleEndian.Uint16(sr.buf[off:])
				head[j] = f16LookupTable[bits]
				off += 2
			}
		}

		heads[i] = head
	}

	return heads, nil
}

// WriteScores encodes head score vectors in the ScoreReader record layout,
// the inverse of Next. Model export pipelines use it to produce replayable
// score files.
func WriteScores(w io.Writer, format ScoreFormat, heads []HeadScores) error {

	for _, head := range heads {
		for _, v := range head {

			switch format {

			case ScoreFloat32:
				var buf [4]byte
				binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))

				if _, err := w.Write(buf[:]); err != nil {
					return fmt.Errorf("writing score record: %w", err)
				}

			default:
				var buf [2]byte
				binary.LittleEndian.PutUint16(buf[:], float16.Fromfloat32(v).Bits())

				if _, err := w.Write(buf[:]); err != nil {
					return fmt.Errorf("writing score record: %w", err)
				}
			}
		}
	}

	return nil
}
