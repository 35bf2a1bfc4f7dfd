package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler admits num out of every den calls. den <= 0 admits everything.
type sampler struct {
	num, den atomic.Int64
	seen     atomic.Uint64
}

func (s *sampler) set(num, den int) {
	if num > den {
		num = den
	}
	s.num.Store(int64(num))
	s.den.Store(int64(den))
	s.seen.Store(0)
}

func (s *sampler) allow() bool {
	den := s.den.Load()
	if den <= 0 {
		return true
	}
	n := s.seen.Add(1) - 1
	return int64(n%uint64(den)) < s.num.Load()
}

// parseRatio reads "1/50" or "50" (meaning 1/50). Anything unparsable
// yields ok=false.
func parseRatio(spec string) (num, den int, ok bool) {
	spec = strings.TrimSpace(spec)
	if a, b, found := strings.Cut(spec, "/"); found {
		n, err1 := strconv.Atoi(strings.TrimSpace(a))
		d, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil || n < 0 || d <= 0 {
			return 0, 0, false
		}
		return n, d, true
	}
	d, err := strconv.Atoi(spec)
	if err != nil || d <= 0 {
		return 0, 0, false
	}
	return 1, d, true
}
