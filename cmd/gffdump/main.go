// Command gffdump walks a GFF file with the tokenizer and prints its
// struct/field/list tree, either as indented text or as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/bearlytools/gff/gffenc"
	"github.com/bearlytools/gff/reader"
	"github.com/bearlytools/gff/token"
)

type cli struct {
	Path     string `arg:"" help:"Path to the GFF file to dump."`
	Format   string `short:"f" default:"text" enum:"text,json" help:"Output format: text or json."`
	Language uint32 `short:"l" default:"0" help:"GFF language code used to pick the legacy codepage for String/LocString payloads."`
	Strict   bool   `help:"Fail on undecodable bytes instead of substituting the replacement character."`
}

func main() {
	var params cli
	kong.Parse(&params, kong.Description("Dump a GFF file's structure."))
	if err := run(&params); err != nil {
		fmt.Fprintf(os.Stderr, "gffdump: %v\n", err)
		os.Exit(1)
	}
}

func run(params *cli) error {
	f, err := os.Open(params.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	trap := gffenc.Replace
	if params.Strict {
		trap = gffenc.Strict
	}
	r, err := reader.Open(f, reader.WithCodec(gffenc.ForLanguage(params.Language)), reader.WithTrap(trap))
	if err != nil {
		return fmt.Errorf("opening %s: %w", params.Path, err)
	}

	root, err := walk(r)
	if err != nil {
		return err
	}

	switch params.Format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(root)
	default:
		printText(os.Stdout, root, 0)
		return nil
	}
}

// node is the CLI's own small presentation tree, built by walking the
// tokenizer once. It exists only at this command's boundary; the library
// packages never materialize a tree of their own.
type node struct {
	Kind     string `json:"kind"`
	Tag      uint32 `json:"tag,omitempty"`
	Label    string `json:"label,omitempty"`
	Value    any    `json:"value,omitempty"`
	Children []node `json:"children,omitempty"`
}

func walk(r *reader.Reader) (node, error) {
	tz := r.NewTokenizer()
	t, err := tz.NextToken()
	if err != nil {
		return node{}, err
	}
	if t.Kind != token.RootBegin {
		return node{}, fmt.Errorf("gffdump: expected RootBegin, got %s", t.Kind)
	}
	root := node{Kind: "struct", Tag: t.Tag}
	children, err := walkFields(r, tz, t.FieldCount)
	if err != nil {
		return node{}, err
	}
	root.Children = children
	if _, err := tz.NextToken(); err != nil { // RootEnd
		return node{}, err
	}
	return root, nil
}

func walkFields(r *reader.Reader, tz *reader.Tokenizer, count uint32) ([]node, error) {
	out := make([]node, 0, count)
	for i := uint32(0); i < count; i++ {
		label, err := tz.NextToken()
		if err != nil {
			return nil, err
		}
		if label.Kind != token.Label {
			return nil, fmt.Errorf("gffdump: expected Label, got %s", label.Kind)
		}
		name, err := r.ReadLabel(label.LabelIndex)
		if err != nil {
			return nil, err
		}
		child, err := walkFieldValue(r, tz, name)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func walkFieldValue(r *reader.Reader, tz *reader.Tokenizer, label string) (node, error) {
	t, err := tz.NextToken()
	if err != nil {
		return node{}, err
	}
	switch t.Kind {
	case token.Value:
		v, err := r.Materialize(t.Value)
		if err != nil {
			return node{}, err
		}
		return node{Kind: "value", Label: label, Value: v}, nil

	case token.StructBegin:
		children, err := walkFields(r, tz, t.FieldCount)
		if err != nil {
			return node{}, err
		}
		if _, err := tz.NextToken(); err != nil { // StructEnd
			return node{}, err
		}
		return node{Kind: "struct", Label: label, Tag: t.Tag, Children: children}, nil

	case token.ListBegin:
		items := make([]node, 0, t.Count)
		for i := uint32(0); i < t.Count; i++ {
			it, err := tz.NextToken()
			if err != nil {
				return node{}, err
			}
			if it.Kind != token.ItemBegin {
				return node{}, fmt.Errorf("gffdump: expected ItemBegin, got %s", it.Kind)
			}
			children, err := walkFields(r, tz, it.FieldCount)
			if err != nil {
				return node{}, err
			}
			if _, err := tz.NextToken(); err != nil { // ItemEnd
				return node{}, err
			}
			items = append(items, node{Kind: "struct", Tag: it.Tag, Children: children})
		}
		if _, err := tz.NextToken(); err != nil { // ListEnd
			return node{}, err
		}
		return node{Kind: "list", Label: label, Children: items}, nil

	default:
		return node{}, fmt.Errorf("gffdump: unexpected token %s for field value", t.Kind)
	}
}

func printText(w io.Writer, n node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case "struct":
		if n.Label != "" {
			fmt.Fprintf(w, "%s%s (struct, tag %d)\n", indent, n.Label, n.Tag)
		} else {
			fmt.Fprintf(w, "%sstruct (tag %d)\n", indent, n.Tag)
		}
		for _, c := range n.Children {
			printText(w, c, depth+1)
		}
	case "list":
		fmt.Fprintf(w, "%s%s (list, %d items)\n", indent, n.Label, len(n.Children))
		for _, c := range n.Children {
			printText(w, c, depth+1)
		}
	default:
		fmt.Fprintf(w, "%s%s = %v\n", indent, n.Label, n.Value)
	}
}
