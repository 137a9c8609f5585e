package energy

import (
	"encoding/json"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Series is one value per day of a year. Missing days are stored as NaN and
// serialized as null.
type Series []float64

// Absent is the in-memory marker for a day without data.
func Absent() float64 { return math.NaN() }

// IsAbsent reports whether v marks a missing day.
func IsAbsent(v float64) bool { return math.IsNaN(v) }

// NewSeries returns a series of n absent days.
func NewSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// At returns the value for day i and whether it is present.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) || math.IsNaN(s[i]) {
		return 0, false
	}
	return s[i], true
}

// Present counts the days that carry a value.
func (s Series) Present() int {
	n := 0
	for _, v := range s {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

func (s Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.pointers())
}

func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = fromPointers(raw)
	return nil
}

func (s Series) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(s.pointers())
}

func (s *Series) DecodeMsgpack(dec *msgpack.Decoder) error {
	var raw []*float64
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*s = fromPointers(raw)
	return nil
}

func (s Series) pointers() []*float64 {
	out := make([]*float64, len(s))
	for i, v := range s {
		if !math.IsNaN(v) {
			out[i] = &v
		}
	}
	return out
}

func fromPointers(raw []*float64) Series {
	s := make(Series, len(raw))
	for i, p := range raw {
		if p == nil {
			s[i] = math.NaN()
			continue
		}
		s[i] = *p
	}
	return s
}
