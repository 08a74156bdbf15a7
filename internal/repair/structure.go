package repair

import (
	"encoding/json"
	"strings"
	"unicode"
)

type frame struct {
	open      byte
	expectKey bool
}

type scanResult struct {
	// complete is set when the outermost container closed at end
	complete bool
	end      int

	stack    []frame
	inString bool
	escaped  bool

	// pendingKey is the start of a key string not yet followed by a colon
	pendingKey int

	// lastSafe is the offset just past the last container closed directly
	// inside an array, with safeStack the open containers at that point
	lastSafe  int
	safeStack []frame
}

func scanStructure(s string) scanResult {
	res := scanResult{pendingKey: -1, lastSafe: -1}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if res.inString {
			switch {
			case res.escaped:
				res.escaped = false
			case c == '\\':
				res.escaped = true
			case c == '"':
				res.inString = false
			}
			continue
		}

		switch c {
		case '"':
			res.inString = true
			if top := res.top(); top != nil && top.open == '{' && top.expectKey {
				res.pendingKey = i
			}
		case '{':
			res.stack = append(res.stack, frame{open: '{', expectKey: true})
		case '[':
			res.stack = append(res.stack, frame{open: '['})
		case '}', ']':
			if len(res.stack) == 0 {
				res.complete = true
				res.end = i
				return res
			}
			res.stack = res.stack[:len(res.stack)-1]
			if len(res.stack) == 0 {
				res.complete = true
				res.end = i + 1
				return res
			}
			if top := res.top(); top.open == '[' {
				res.lastSafe = i + 1
				res.safeStack = append(res.safeStack[:0], res.stack...)
			}
		case ':':
			res.pendingKey = -1
			if top := res.top(); top != nil && top.open == '{' {
				top.expectKey = false
			}
		case ',':
			if top := res.top(); top != nil && top.open == '{' {
				top.expectKey = true
			}
		}
	}
	return res
}

func (r *scanResult) top() *frame {
	if len(r.stack) == 0 {
		return nil
	}
	return &r.stack[len(r.stack)-1]
}

// Repair attempts structural repair of a truncated JSON array starting at the
// first '['. It closes an unterminated string, drops a dangling key or comma,
// and appends the missing closers. If that does not produce valid JSON it cuts
// back to the last complete array element instead. The input is not modified;
// ok is false when no valid array could be produced.
func Repair(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", false
	}
	body := strings.TrimSpace(text[start:])
	body = strings.TrimSpace(strings.TrimSuffix(body, "```"))

	res := scanStructure(body)
	if res.complete {
		closed := body[:res.end]
		return closed, json.Valid([]byte(closed))
	}

	if repaired := closeInPlace(body, res); json.Valid([]byte(repaired)) {
		return repaired, true
	}

	if res.lastSafe > 0 {
		repaired := body[:res.lastSafe] + closers(res.safeStack)
		if json.Valid([]byte(repaired)) {
			return repaired, true
		}
	}

	return "", false
}

func closeInPlace(body string, res scanResult) string {
	repaired := body
	if res.inString {
		if res.escaped {
			repaired = repaired[:len(repaired)-1]
		}
		repaired += `"`
	}
	if res.pendingKey >= 0 {
		repaired = repaired[:res.pendingKey]
	}
	repaired = strings.TrimRightFunc(repaired, unicode.IsSpace)
	switch {
	case strings.HasSuffix(repaired, ":"):
		repaired += "null"
	case strings.HasSuffix(repaired, ","):
		repaired = strings.TrimRightFunc(strings.TrimSuffix(repaired, ","), unicode.IsSpace)
	}
	return repaired + closers(res.stack)
}

func closers(stack []frame) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].open == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}
