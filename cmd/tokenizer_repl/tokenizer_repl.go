package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/wbrown/byte_bpe"
)

// A REPL for a byte-level BPE tokenizer trained in-process from a
// corpus file.

func main() {
	corpusPath := flag.String("input", "",
		"corpus file to train on")
	vocabSize := flag.Int("vocab_size", 512,
		"target vocabulary size, raw bytes included")
	flag.Parse()

	if *corpusPath == "" {
		flag.Usage()
		log.Fatal("Must provide -input")
	}
	corpus, err := os.ReadFile(*corpusPath)
	if err != nil {
		log.Fatal(err)
	}

	table, err := byte_bpe.Train(byte_bpe.BytesOf(string(corpus)),
		*vocabSize)
	if err != nil {
		log.Fatal(err)
	}
	encoder, err := byte_bpe.NewBPEEncoder(table)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("trained %d merge rules from %s", table.Len(),
		*corpusPath)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(">>> ")
		input, err := reader.ReadString('\n')
		if err == io.EOF {
			return
		} else if err != nil {
			log.Fatal(err)
		}
		// Remove trailing newline and replace \n with newline.
		input = strings.Replace(input[:len(input)-1], "\\n", "\n", -1)

		tokens := encoder.Encode(&input)
		fmt.Printf("%v\n", *tokens)
		for _, token := range *tokens {
			fmt.Printf("|%s", encoder.Get(token))
		}
		fmt.Printf("\n")
		decoded, err := encoder.Decode(tokens)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s\n", decoded)
	}
}
