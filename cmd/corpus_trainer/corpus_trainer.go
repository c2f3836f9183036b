package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/edsrzf/mmap-go"
	"github.com/wbrown/byte_bpe"
)

// Trains a byte-level BPE merge table from a corpus file and verifies
// the trained tokenizer by round-tripping a sample string.

func main() {
	corpusPath := flag.String("input", "",
		"corpus file to train on")
	vocabSize := flag.Int("vocab_size", 1024,
		"target vocabulary size, raw bytes included")
	sample := flag.String("sample",
		"The quick brown fox jumps over the lazy dog.",
		"text to round trip through the trained tokenizer")
	showMerges := flag.Int("show_merges", 10,
		"number of leading merge rules to print")
	flag.Parse()

	if *corpusPath == "" {
		flag.Usage()
		log.Fatal("Must provide -input")
	}

	corpusFile, err := os.Open(*corpusPath)
	if err != nil {
		log.Fatal(err)
	}
	defer corpusFile.Close()
	corpusMmap, err := mmap.Map(corpusFile, mmap.RDONLY, 0)
	if err != nil {
		log.Fatalf("Error mapping `%s`: %v", *corpusPath, err)
	}
	defer corpusMmap.Unmap()
	corpus := string(corpusMmap)

	ids := byte_bpe.BytesOf(corpus)
	log.Printf("training on %s (%s byte tokens), vocab size %d",
		humanize.Bytes(uint64(len(corpus))),
		humanize.Comma(int64(len(ids))), *vocabSize)

	table, err := byte_bpe.Train(ids, *vocabSize)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("learned %s merge rules",
		humanize.Comma(int64(table.Len())))

	encoder, err := byte_bpe.NewBPEEncoder(table)
	if err != nil {
		log.Fatal(err)
	}

	entries := table.Entries()
	for idx := 0; idx < len(entries) && idx < *showMerges; idx++ {
		entry := entries[idx]
		fmt.Printf("%d: (%d, %d) -> %q\n", entry.Token,
			entry.Pair.Left, entry.Pair.Right,
			encoder.Get(entry.Token))
	}

	encoded := encoder.Encode(sample)
	decoded, err := encoder.Decode(encoded)
	if err != nil {
		log.Fatal(err)
	}
	if decoded != *sample {
		log.Fatalf("round trip mismatch: %q != %q", decoded, *sample)
	}
	log.Printf("sample: %d bytes -> %d tokens, round trip ok",
		len(*sample), len(*encoded))
}
