// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package nexusio reads phylogenetic trees from the tree block of a
// nexus file, adapted from the timetree package's nexus.go to the
// float64-age tree.Tree used across this module.
package nexusio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/jonchang/tact/newickio"
	"github.com/jonchang/tact/tree"
)

// Read parses every tree in a nexus file's "trees" block. age sets the
// age of each tree's root (in million years); if age is 0, it is
// inferred from the tree's deepest root-to-terminal path.
func Read(r io.Reader, age float64) (*newickio.Collection, error) {
	nxf := bufio.NewReader(r)
	token := &strings.Builder{}

	if _, err := readToken(nxf, token); err != nil {
		return nil, fmt.Errorf("expecting '#nexus' header: %v", err)
	}
	if t := strings.ToLower(token.String()); t != "#nexus" {
		return nil, fmt.Errorf("got %q, expecting '#nexus' header", t)
	}

	for {
		if _, err := readToken(nxf, token); err != nil {
			return nil, fmt.Errorf("expecting 'begin' token: %v", err)
		}
		if t := strings.ToLower(token.String()); t != "begin" {
			return nil, fmt.Errorf("got %q, expecting 'begin' block", t)
		}

		if _, err := readToken(nxf, token); err != nil {
			return nil, fmt.Errorf("expecting block name: %v", err)
		}
		block := strings.ToLower(token.String())
		if block == "trees" {
			break
		}
		if err := skipBlock(nxf, token); err != nil {
			return nil, fmt.Errorf("incomplete block %q: %v", block, err)
		}
	}

	c := newickio.NewCollection()
	var labels map[string]string
	for {
		if _, err := readToken(nxf, token); err != nil {
			return nil, fmt.Errorf("incomplete block 'trees': %v", err)
		}
		t := strings.ToLower(token.String())
		if t == "end" || t == "endblock" {
			break
		}
		if t == "translate" {
			var err error
			labels, err = readTranslate(nxf, token)
			if err != nil {
				return nil, fmt.Errorf("invalid tree block: %v", err)
			}
			continue
		}
		if t == "tree" {
			tr, err := readTreeNewick(nxf, token, age)
			if err != nil {
				return nil, fmt.Errorf("incomplete block 'trees': %v", err)
			}
			if err := translateTree(tr, labels); err != nil {
				return nil, fmt.Errorf("translating tree %q: %v", tr.Name(), err)
			}
			if err := c.Add(tr); err != nil {
				return nil, fmt.Errorf("when adding tree %q: %v", tr.Name(), err)
			}
			continue
		}
		if err := skipDefinition(nxf, token); err != nil {
			return nil, fmt.Errorf("incomplete block 'characters', token %q: %v", t, err)
		}
	}

	if len(c.Names()) == 0 {
		return nil, fmt.Errorf("file without trees")
	}
	return c, nil
}

// ReadTree parses a nexus file and returns its first tree; any further
// trees are ignored.
func ReadTree(r io.Reader, age float64) (*tree.Tree, error) {
	c, err := Read(r, age)
	if err != nil {
		return nil, err
	}
	names := c.Names()
	return c.Tree(names[0]), nil
}

func translateTree(t *tree.Tree, labels map[string]string) error {
	if len(labels) == 0 {
		return nil
	}
	for _, n := range t.Terms() {
		tax, ok := labels[n.Taxon()]
		if !ok {
			continue
		}
		if err := t.Rename(n, tax); err != nil {
			return err
		}
	}
	return nil
}

func readTreeNewick(r *bufio.Reader, token *strings.Builder, age float64) (*tree.Tree, error) {
	if _, err := readToken(r, token); err != nil {
		return nil, fmt.Errorf("while reading tree name: %v", err)
	}
	name := strings.ToLower(token.String())
	if err := skipSpaces(r); err != nil {
		return nil, fmt.Errorf("expecting newick tree: %v", err)
	}

	// Consume up to and including the terminating semicolon, then
	// hand the buffered newick text to the shared parser.
	var sb strings.Builder
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			return nil, fmt.Errorf("while reading tree %q: %v", name, err)
		}
		sb.WriteRune(r1)
		if r1 == ';' {
			break
		}
	}
	t, err := newickio.ReadTree(strings.NewReader(sb.String()), name, age)
	if err != nil {
		return nil, fmt.Errorf("while reading tree %q: %v", name, err)
	}
	return t, nil
}

func readTranslate(r *bufio.Reader, token *strings.Builder) (map[string]string, error) {
	labels := make(map[string]string)
	for i := 0; ; i++ {
		if _, err := readToken(r, token); err != nil {
			return nil, fmt.Errorf("while reading tree translate labels: %v, last label read: %d", err, i)
		}
		label := token.String()
		id, err := strconv.Atoi(label)
		if err != nil {
			return nil, fmt.Errorf("while reading tree translate labels: taxon %d [%q]: %v", i+1, token.String(), err)
		}
		if id != i+1 {
			return nil, fmt.Errorf("while reading tree translate labels: taxon %d [%q]: expecting %d", i+1, token.String(), i+1)
		}

		delim, err := readToken(r, token)
		if err != nil {
			return nil, fmt.Errorf("while reading tree translate labels: taxon %d [%q]: %v", i+1, token.String(), err)
		}
		taxName := tree.Canon(strings.ReplaceAll(token.String(), "_", " "))
		labels[label] = taxName
		if delim == ';' {
			break
		}
	}
	return labels, nil
}

func skipBlock(r *bufio.Reader, token *strings.Builder) error {
	for {
		_, err := readToken(r, token)
		t := strings.ToLower(token.String())
		if t == "end" || t == "endblock" {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func skipDefinition(r *bufio.Reader, token *strings.Builder) error {
	for {
		delim, err := readToken(r, token)
		if delim == ';' {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func readToken(r *bufio.Reader, token *strings.Builder) (delim rune, err error) {
	token.Reset()
	if err := skipSpaces(r); err != nil {
		return 0, err
	}

	r1, _, err := r.ReadRune()
	if err != nil {
		return 0, err
	}
	if r1 == '\'' || r1 == '"' {
		stop := r1
		for {
			r1, _, err := r.ReadRune()
			if err != nil {
				return 0, err
			}
			if r1 == stop {
				nx, _, err := r.ReadRune()
				if err != nil {
					return 0, err
				}
				if nx != stop {
					r.UnreadRune()
					delim = ' '
					break
				}
				if stop == '\'' {
					continue
				}
			}
			token.WriteRune(r1)
		}
	} else {
		r.UnreadRune()
		for {
			r1, _, err := r.ReadRune()
			if err != nil {
				return 0, err
			}
			if unicode.IsSpace(r1) {
				delim = ' '
				break
			}
			if r1 == ';' || r1 == ',' || r1 == '/' || r1 == '=' {
				delim = r1
				break
			}
			token.WriteRune(r1)
		}
	}

	if unicode.IsSpace(delim) {
		if err := skipSpaces(r); err != nil {
			return 0, err
		}
		r1, _, err := r.ReadRune()
		if err != nil {
			return 0, err
		}
		if r1 == ';' || r1 == ',' || r1 == '/' || r1 == '=' {
			delim = r1
		} else {
			r.UnreadRune()
		}
	}
	return delim, nil
}

func skipSpaces(r *bufio.Reader) error {
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			return err
		}
		if r1 == '[' {
			if err := skipComment(r); err != nil {
				return err
			}
			continue
		}
		if !unicode.IsSpace(r1) {
			r.UnreadRune()
			return nil
		}
	}
}

// Write encodes a collection of trees as a minimal NEXUS file: a
// taxa block listing every distinct terminal across the collection,
// followed by a trees block with one NEWICK tree statement per tree.
// No translate table is emitted; terminal names are written in full.
func Write(w io.Writer, c *newickio.Collection) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprint(bw, "#NEXUS\n"); err != nil {
		return err
	}

	taxa := make(map[string]bool)
	var order []string
	for _, name := range c.Names() {
		for _, tip := range c.Tree(name).TermNames() {
			if !taxa[tip] {
				taxa[tip] = true
				order = append(order, tip)
			}
		}
	}
	fmt.Fprintf(bw, "begin taxa;\n\tdimensions ntax=%d;\n\ttaxlabels\n", len(order))
	for _, tip := range order {
		fmt.Fprintf(bw, "\t\t%s\n", quoteIfNeeded(tip))
	}
	fmt.Fprint(bw, "\t\t;\nend;\n")

	fmt.Fprint(bw, "begin trees;\n")
	for _, name := range c.Names() {
		t := c.Tree(name)
		var sb strings.Builder
		if err := newickio.Write(&sb, t); err != nil {
			return err
		}
		fmt.Fprintf(bw, "\ttree %s = [&R] %s", name, sb.String())
	}
	fmt.Fprint(bw, "end;\n")

	return bw.Flush()
}

func quoteIfNeeded(name string) string {
	if strings.ContainsAny(name, " ()[]:;,'") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func skipComment(r *bufio.Reader) error {
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			return err
		}
		if r1 == ']' {
			return nil
		}
	}
}
