package byte_bpe

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

const ENCODE_LRU_SZ = 65536

// Identifiers 0-255 are reserved for raw byte values; merge identifiers
// are assigned densely from VocabStart upward during training.
const (
	ByteTokens = 256
	VocabStart = 256
)

// Token is a single vocabulary identifier. The width here is the only
// place it is fixed; the reference 16-bit ceiling of 65,536 entries
// does not apply.
type Token uint32
type Tokens []Token

// TokenPair is two adjacent tokens in a sequence, Left preceding Right.
type TokenPair struct {
	Left  Token
	Right Token
}

// MergeEntry is one learned rule: Pair collapses into Token.
type MergeEntry struct {
	Pair  TokenPair
	Token Token
}

// MergeTable holds the learned merge rules. The entry list preserves
// creation order, which is also encode priority; the pair index answers
// membership and priority queries in O(1). Tables are append-only
// during training and immutable afterward.
type MergeTable struct {
	entries []MergeEntry
	byPair  map[TokenPair]Token
}

// Vocab maps every identifier in use to the raw byte payload it stands
// for.
type Vocab map[Token][]byte

var (
	ErrUnknownToken      = errors.New("byte_bpe: unknown token identifier")
	ErrInvalidMergeTable = errors.New("byte_bpe: merge table references undefined identifier")
	ErrVocabSize         = errors.New("byte_bpe: vocab size leaves no room for merges")
)

func NewMergeTable() *MergeTable {
	return &MergeTable{
		entries: make([]MergeEntry, 0),
		byPair:  make(map[TokenPair]Token),
	}
}

func (table *MergeTable) add(pair TokenPair, idx Token) {
	table.entries = append(table.entries, MergeEntry{pair, idx})
	table.byPair[pair] = idx
}

// Get returns the identifier assigned to pair, if pair was learned.
func (table *MergeTable) Get(pair TokenPair) (Token, bool) {
	idx, ok := table.byPair[pair]
	return idx, ok
}

// Len returns the number of learned merge rules.
func (table *MergeTable) Len() int {
	return len(table.entries)
}

// Entries returns the merge rules in creation order.
func (table *MergeTable) Entries() []MergeEntry {
	return table.entries
}

// BytesOf converts text into its initial token sequence, one token per
// byte of the UTF-8 encoding.
func BytesOf(text string) Tokens {
	textBytes := []byte(text)
	ids := make(Tokens, len(textBytes))
	for idx := range textBytes {
		ids[idx] = Token(textBytes[idx])
	}
	return ids
}

// PairStats counts every adjacent ordered pair in ids. Sequences
// shorter than two tokens yield an empty map.
func PairStats(ids Tokens) map[TokenPair]int {
	stats := make(map[TokenPair]int)
	for idx := 0; idx+1 < len(ids); idx++ {
		stats[TokenPair{ids[idx], ids[idx+1]}]++
	}
	return stats
}

func pairLess(a, b TokenPair) bool {
	if a.Left == b.Left {
		return a.Right < b.Right
	}
	return a.Left < b.Left
}

// MostFrequentPair returns the pair with the highest count. Ties go to
// the smallest (Left, Right) pair so that map iteration order never
// leaks into the result. A pair occurring fewer than twice is not a
// merge candidate, so false is returned when no count reaches 2.
func MostFrequentPair(stats map[TokenPair]int) (TokenPair, bool) {
	var best TokenPair
	bestCount := 0
	for pair, count := range stats {
		if count > bestCount ||
			(count == bestCount && pairLess(pair, best)) {
			best = pair
			bestCount = count
		}
	}
	if bestCount < 2 {
		return TokenPair{}, false
	}
	return best, true
}

// Merge returns ids with every non-overlapping left-to-right occurrence
// of pair collapsed into idx. A match consumes both positions, so a run
// like (e, e, e) against pair (e, e) merges once, not twice. Sequences
// shorter than two tokens are returned unchanged.
func Merge(ids Tokens, pair TokenPair, idx Token) Tokens {
	if len(ids) < 2 {
		return ids
	}
	merged := make(Tokens, 0, len(ids))
	i := 0
	for i+1 < len(ids) {
		if ids[i] == pair.Left && ids[i+1] == pair.Right {
			merged = append(merged, idx)
			i += 2
		} else {
			merged = append(merged, ids[i])
			i += 1
		}
	}
	if i < len(ids) {
		merged = append(merged, ids[i])
	}
	return merged
}

// Train learns merge rules from ids until the vocabulary would reach
// vocabSize, assigning identifiers from VocabStart upward.
func Train(ids Tokens, vocabSize int) (*MergeTable, error) {
	return TrainRange(ids, vocabSize, VocabStart)
}

// TrainRange is Train with an explicit first merge identifier. Each
// round counts pair statistics over the working sequence, merges the
// most frequent pair and records the rule. Training stops early once no
// pair occurs at least twice; the table built so far is returned, as
// exhaustion is a property of the corpus rather than an error. The
// caller's ids are never mutated.
func TrainRange(ids Tokens, vocabSize int, vocabStart int) (
	*MergeTable, error,
) {
	if vocabSize <= vocabStart {
		return nil, fmt.Errorf("%w: %d <= %d", ErrVocabSize,
			vocabSize, vocabStart)
	}
	numMerges := vocabSize - vocabStart
	table := NewMergeTable()
	seq := ids
	for i := 0; i < numMerges; i++ {
		pair, ok := MostFrequentPair(PairStats(seq))
		if !ok {
			break
		}
		idx := Token(vocabStart + i)
		seq = Merge(seq, pair, idx)
		table.add(pair, idx)
	}
	return table, nil
}

// VocabularyOf expands table into the mapping from every identifier to
// its full byte payload. Identifiers 0-255 map to their own byte value;
// each merge identifier maps to the concatenation of its constituents'
// payloads, which training order guarantees are already defined. A
// missing constituent means the table was assembled out of order or by
// hand, and aborts the expansion.
func VocabularyOf(table *MergeTable) (Vocab, error) {
	vocab := make(Vocab, ByteTokens+table.Len())
	for idx := 0; idx < ByteTokens; idx++ {
		vocab[Token(idx)] = []byte{byte(idx)}
	}
	for _, entry := range table.entries {
		left, leftOk := vocab[entry.Pair.Left]
		right, rightOk := vocab[entry.Pair.Right]
		if !leftOk || !rightOk {
			return nil, fmt.Errorf("%w: pair (%d, %d) for token %d",
				ErrInvalidMergeTable, entry.Pair.Left,
				entry.Pair.Right, entry.Token)
		}
		payload := make([]byte, 0, len(left)+len(right))
		payload = append(payload, left...)
		payload = append(payload, right...)
		vocab[entry.Token] = payload
	}
	return vocab, nil
}

// lowestPair returns the pair present in stats that carries the lowest
// merge identifier in the table, if any does.
func (table *MergeTable) lowestPair(stats map[TokenPair]int) (
	TokenPair, Token, bool,
) {
	var minPair TokenPair
	var minToken Token
	found := false
	for pair := range stats {
		idx, ok := table.byPair[pair]
		if !ok {
			continue
		}
		if !found || idx < minToken {
			minPair = pair
			minToken = idx
			found = true
		}
	}
	return minPair, minToken, found
}

// EncodeTokens applies table to text until no learned merge applies.
// Among the pairs present in the working sequence, the one with the
// lowest assigned identifier merges first. Earlier-learned rules always
// win over later ones regardless of current frequency, which gives a
// single canonical encoding per (text, table).
func EncodeTokens(text string, table *MergeTable) Tokens {
	seq := BytesOf(text)
	for len(seq) > 1 {
		pair, idx, ok := table.lowestPair(PairStats(seq))
		if !ok {
			break
		}
		seq = Merge(seq, pair, idx)
	}
	return seq
}

// DecodeTokens reassembles ids into text via vocab. The byte buffer is
// interpreted as UTF-8 with ill-formed bytes replaced by U+FFFD; merge
// boundaries may fall inside multi-byte characters, so only the fully
// assembled buffer is expected to be well formed. An identifier absent
// from vocab indicates a mismatched table/vocabulary pairing and aborts
// the call.
func DecodeTokens(ids Tokens, vocab Vocab) (string, error) {
	decoded := make([]byte, 0, len(ids))
	for _, idx := range ids {
		payload, ok := vocab[idx]
		if !ok {
			return "", fmt.Errorf("%w: %d", ErrUnknownToken, idx)
		}
		decoded = append(decoded, payload...)
	}
	return string([]rune(string(decoded))), nil
}

// BPEEncoder fronts a trained merge table with its derived vocabulary
// and an ARC cache over encoded strings.
type BPEEncoder struct {
	Merges    *MergeTable
	Vocab     Vocab
	Cache     *lru.ARCCache
	LruHits   int
	LruMisses int
}

// NewBPEEncoder derives the vocabulary from table once and readies the
// encode cache.
func NewBPEEncoder(table *MergeTable) (*BPEEncoder, error) {
	vocab, err := VocabularyOf(table)
	if err != nil {
		return nil, err
	}
	cache, _ := lru.NewARC(ENCODE_LRU_SZ)
	return &BPEEncoder{
		Merges: table,
		Vocab:  vocab,
		Cache:  cache,
	}, nil
}

// Encode encodes a string into a sequence of tokens.
func (encoder *BPEEncoder) Encode(text *string) *Tokens {
	if lookup, ok := encoder.Cache.Get(*text); ok {
		encoder.LruHits++
		encoded := lookup.(Tokens)
		return &encoded
	}
	encoder.LruMisses++
	encoded := EncodeTokens(*text, encoder.Merges)
	encoder.Cache.Add(*text, encoded)
	return &encoded
}

// Decode tokens back into a string.
func (encoder *BPEEncoder) Decode(encoded *Tokens) (string, error) {
	return DecodeTokens(*encoded, encoder.Vocab)
}

// Get looks up the byte payload for a single token. If the token is
// not in the vocabulary, nil is returned.
func (encoder *BPEEncoder) Get(idx Token) []byte {
	return encoder.Vocab[idx]
}
