package byte_bpe

import (
	"strings"
)

type TrimDirection uint

const (
	TrimTop    TrimDirection = iota
	TrimBottom TrimDirection = iota
	TrimNone   TrimDirection = iota
)

// TrimNewlines trims a token window to at most limit tokens at line
// granularity, dropping lines from the top or bottom until the window
// fits.
func (encoder *BPEEncoder) TrimNewlines(
	tokens *Tokens, direction TrimDirection, limit uint,
) (*Tokens, error) {
	trimmed := make(Tokens, 0)
	if uint(len(*tokens)) <= limit {
		return tokens, nil
	} else if direction == TrimNone {
		return &trimmed, nil
	}
	decoded, err := encoder.Decode(tokens)
	if err != nil {
		return &trimmed, err
	}
	lines := strings.Split(decoded, "\n")
	var start, end, step, idx int
	switch direction {
	case TrimTop:
		start = len(lines) - 1
		end = -1
		step = -1
	case TrimBottom:
		start = 0
		end = len(lines)
		step = 1
	}
	accTokens := make(Tokens, 0)
	for idx = start; idx != end; idx += step {
		line := lines[idx]
		switch direction {
		case TrimTop:
			line = "\n" + line
		case TrimBottom:
			line = line + "\n"
		}
		newTokens := encoder.Encode(&line)
		if len(*newTokens)+len(accTokens) > int(limit) {
			return &accTokens, nil
		}
		switch direction {
		case TrimTop:
			joined := make(Tokens, 0, len(*newTokens)+len(accTokens))
			joined = append(joined, *newTokens...)
			accTokens = append(joined, accTokens...)
		case TrimBottom:
			accTokens = append(accTokens, *newTokens...)
		}
	}
	return &accTokens, nil
}
