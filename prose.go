package byte_bpe

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

const PUNC_REGEX = "\\p{L}[.!?;]\\p{L}"

var puncPat = regexp.MustCompile(PUNC_REGEX)

// TrimIncompleteSentence drops a trailing sentence fragment from the
// token window, unless doing so would discard more than a fifth of the
// text.
func (encoder *BPEEncoder) TrimIncompleteSentence(tokens *Tokens) (
	*Tokens,
	error,
) {
	trimmed := make(Tokens, 0)
	decoded, err := encoder.Decode(tokens)
	if err != nil {
		return &trimmed, err
	}
	doc, err := prose.NewDocument(
		decoded,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false),
	)
	if err != nil {
		return &trimmed, err
	}
	firstSentences := doc.Sentences()
	sentences := make([]string, 0)
	for _, sentence := range firstSentences {
		newSentences := puncPat.Split(sentence.Text, -1)
		sentences = append(sentences, newSentences...)
	}
	lastSentence := sentences[len(sentences)-1]
	var last rune
	for _, r := range lastSentence {
		if unicode.IsSpace(r) {
			continue
		}
		last = r
	}
	var text = doc.Text
	if !unicode.IsPunct(last) {
		trimPos := strings.LastIndex(text, lastSentence)
		if trimPos >= 1 {
			text = doc.Text[:trimPos-1]
		}
	}
	text = strings.TrimSpace(text)
	if float32(len(text)) < float32(len(doc.Text))*0.8 {
		return tokens, nil
	}
	encoded := encoder.Encode(&text)
	return encoded, nil
}

// TrimSentences trims a token window to at most limit tokens at
// sentence granularity.
func (encoder *BPEEncoder) TrimSentences(
	tokens *Tokens,
	direction TrimDirection,
	limit uint,
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
	doc, err := prose.NewDocument(
		decoded,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false),
	)
	if err != nil {
		return &trimmed, err
	}
	sentences := doc.Sentences()
	var start, end, step, idx int
	var textBegin, textEnd int
	var sentenceIdx, lastSentence int
	switch direction {
	case TrimTop:
		start = len(sentences) - 1
		end = -1
		step = -1
		textBegin = 0
		textEnd = len(doc.Text)
	case TrimBottom:
		start = 0
		end = len(sentences)
		step = 1
		textBegin = 0
		textEnd = len(doc.Text)
	default:
		return &trimmed, nil
	}
	for idx = start; idx != end; idx += step {
		sentence := sentences[idx].Text
		switch direction {
		case TrimTop:
			sentenceIdx = strings.LastIndex(
				doc.Text[textBegin:],
				sentence,
			) + textBegin
			if sentenceIdx > 0 && sentenceIdx < len(doc.Text) &&
				unicode.IsSpace(rune(doc.Text[sentenceIdx])) {
				sentenceIdx -= 1
			}
			toTokenize := doc.Text[sentenceIdx:]
			tokCt := uint(len(*(encoder.Encode(&toTokenize))))
			if tokCt >= limit {
				toEncode := doc.Text[textEnd:]
				return encoder.Encode(&toEncode), nil
			}
			textEnd = sentenceIdx - 1
		case TrimBottom:
			sentenceIdx = strings.Index(
				doc.Text[textBegin:textEnd],
				sentence,
			) + textBegin
			sentenceEnd := sentenceIdx + len(sentence)
			if sentenceEnd < textEnd &&
				doc.Text[sentenceEnd:sentenceEnd+1] == "\n" {
				sentenceEnd += 1
			}
			toTokenize := doc.Text[0:sentenceEnd]
			tokCt := uint(len(*(encoder.Encode(&toTokenize))))
			if tokCt >= limit {
				toEncode := doc.Text[0:lastSentence]
				return encoder.Encode(&toEncode), nil
			}
			lastSentence = sentenceEnd
			textBegin += len(sentence)
		}
	}
	return &trimmed, nil
}
