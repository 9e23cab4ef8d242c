// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package tsvio reads and writes phylogenetic trees in a flat,
// spreadsheet-friendly TSV format, adapted from the timetree package's
// tsv.go to the float64-age tree.Tree used across this module.
package tsvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jonchang/tact/newickio"
	"github.com/jonchang/tact/tree"
)

var headerFields = []string{"tree", "node", "parent", "age", "taxon"}

// ErrAddNoParent is returned when a row names a parent ID that no
// earlier row defined.
var ErrAddNoParent = errors.New("parent ID not in tree")

type rawRow struct {
	age    float64
	taxon  string
	parent int
}

// Read parses a TSV file into a collection of trees. The TSV must
// contain the fields tree, node, parent (-1 for the root), age (in
// million years) and taxon; parent rows must precede their children.
func Read(r io.Reader) (*newickio.Collection, error) {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		fields[strings.ToLower(h)] = i
	}
	for _, h := range headerFields {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	rows := make(map[string]map[int]rawRow)
	var order []string
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		name := strings.ToLower(strings.Join(strings.Fields(row[fields["tree"]]), " "))
		if name == "" {
			continue
		}
		if _, ok := rows[name]; !ok {
			rows[name] = make(map[int]rawRow)
			order = append(order, name)
		}

		id, err := strconv.Atoi(row[fields["node"]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, "node", err)
		}
		if _, dup := rows[name][id]; dup {
			return nil, fmt.Errorf("on row %d: field %q: node ID %d already used", ln, "node", id)
		}
		pID, err := strconv.Atoi(row[fields["parent"]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, "parent", err)
		}
		age, err := strconv.ParseFloat(row[fields["age"]], 64)
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, "age", err)
		}
		rows[name][id] = rawRow{age: age, taxon: tree.Canon(row[fields["taxon"]]), parent: pID}
	}

	c := newickio.NewCollection()
	for _, name := range order {
		t, err := buildTree(name, rows[name])
		if err != nil {
			return nil, fmt.Errorf("tree %s: %w", name, err)
		}
		if err := c.Add(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ReadTree parses a TSV file and returns its first tree; any further
// trees in the file are ignored.
func ReadTree(r io.Reader) (*tree.Tree, error) {
	c, err := Read(r)
	if err != nil {
		return nil, err
	}
	names := c.Names()
	return c.Tree(names[0]), nil
}

func buildTree(name string, rows map[int]rawRow) (*tree.Tree, error) {
	var rootID int
	foundRoot := false
	children := make(map[int][]int)
	for id, r := range rows {
		if r.parent < 0 {
			rootID = id
			foundRoot = true
			continue
		}
		if _, ok := rows[r.parent]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrAddNoParent, r.parent)
		}
		children[r.parent] = append(children[r.parent], id)
	}
	if !foundRoot {
		return nil, fmt.Errorf("no root row (parent -1) found")
	}

	t := tree.New(name, rows[rootID].age)
	idMap := map[int]*tree.Node{rootID: t.Root()}

	var walk func(id int) error
	walk = func(id int) error {
		for _, cid := range children[id] {
			r := rows[cid]
			n, err := t.AddNode(idMap[id], r.age, r.taxon)
			if err != nil {
				return fmt.Errorf("node %d: %w", cid, err)
			}
			idMap[cid] = n
			if err := walk(cid); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(rootID); err != nil {
		return nil, err
	}
	return t, t.Validate()
}

// Write encodes a single tree in the flat TSV format.
func Write(w io.Writer, t *tree.Tree) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# time calibrated phylogenetic tree\n")
	fmt.Fprintf(bw, "# data saved on: %s\n", time.Now().Format(time.RFC3339))
	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true

	if err := tab.Write(headerFields); err != nil {
		return fmt.Errorf("while writing header: %v", err)
	}
	if err := writeNode(tab, t.Name(), t.Root()); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	tab.Flush()
	if err := tab.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return bw.Flush()
}

// WriteAll encodes every tree in the collection into one TSV file.
func WriteAll(w io.Writer, c *newickio.Collection) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# time calibrated phylogenetic trees\n")
	fmt.Fprintf(bw, "# data saved on: %s\n", time.Now().Format(time.RFC3339))
	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true
	if err := tab.Write(headerFields); err != nil {
		return fmt.Errorf("while writing header: %v", err)
	}
	for _, name := range c.Names() {
		t := c.Tree(name)
		if err := writeNode(tab, t.Name(), t.Root()); err != nil {
			return fmt.Errorf("while writing data: %v", err)
		}
	}
	tab.Flush()
	if err := tab.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return bw.Flush()
}

func writeNode(w *csv.Writer, treeName string, n *tree.Node) error {
	p := "-1"
	if n.Parent() != nil {
		p = strconv.Itoa(n.Parent().ID())
	}
	row := []string{
		treeName,
		strconv.Itoa(n.ID()),
		p,
		strconv.FormatFloat(n.Age(), 'g', -1, 64),
		n.Taxon(),
	}
	if err := w.Write(row); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := writeNode(w, treeName, c); err != nil {
			return err
		}
	}
	return nil
}
