// Command gpt2tok encodes text with a GPT-2 byte-level BPE tokenizer and
// prints the resulting pieces and ids.
//
// Usage:
//
//	gpt2tok -vocab vocab.json -merges merges.txt "some text to encode"
//
// Without positional arguments the text is read from stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"k8s.io/klog/v2"

	"github.com/gomlx/go-bpetokenizer/staging"
)

var (
	flagVocab  = flag.String("vocab", "vocab.json", "Path to the JSON vocabulary file.")
	flagMerges = flag.String("merges", "merges.txt", "Path to the merges file.")
	flagMaxLen = flag.Int("max-len", staging.DefaultMaxLen, "Maximum number of tokens; longer inputs are truncated.")
	flagLower  = flag.Bool("lower", false, "Lowercase the input before tokenizing.")
	flagClean  = flag.Bool("clean", false, "Clean up spacing artifacts in the decoded round-trip text.")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("147"))

	pieceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	service := staging.NewService(
		staging.WithMaxLen(*flagMaxLen),
		staging.WithLowercase(*flagLower),
	)
	if err := stageFile(service.AppendVocab, *flagVocab); err != nil {
		fatalf("loading vocabulary: %v", err)
	}
	if err := stageFile(service.AppendMerges, *flagMerges); err != nil {
		fatalf("loading merges: %v", err)
	}
	if err := service.Initialize(); err != nil {
		fatalf("initializing tokenizer: %v", err)
	}

	text := strings.Join(flag.Args(), " ")
	if text == "" {
		scanner := bufio.NewScanner(os.Stdin)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			fatalf("reading stdin: %v", err)
		}
		text = strings.Join(lines, "\n")
	}

	ids, _ := service.Tokenize(text)
	fmt.Println(headerStyle.Render(fmt.Sprintf("%d tokens:", len(ids))))
	for i, piece := range displayPieces(service, ids) {
		fmt.Printf("  %s %s\n",
			idStyle.Render(fmt.Sprintf("%6d", ids[i])),
			pieceStyle.Render(fmt.Sprintf("%q", piece)))
	}
	fmt.Println(headerStyle.Render("decoded:"))
	fmt.Printf("  %s\n", pieceStyle.Render(service.Decode(ids, true, *flagClean)))
}

// displayPieces decodes every id individually so the table stays aligned with
// the id list; the batch display from Tokenize drops special tokens and can
// be shorter than ids.
func displayPieces(service *staging.Service, ids []int64) []string {
	pieces := make([]string, len(ids))
	for i, id := range ids {
		pieces[i] = service.Decode([]int64{id}, false, false)
	}
	return pieces
}

func stageFile(appendChunk func([]byte), path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	appendChunk(data)
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, args...)))
	os.Exit(1)
}
