package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/redknight990/sick-os-64/kernel/gate"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// gateInfo describes a decoded IDT entry.
type gateInfo struct {
	Vector    uint8  `yaml:"vector"`
	Exception string `yaml:"exception,omitempty"`
	Base      string `yaml:"base"`
	Selector  string `yaml:"selector"`
	DPL       uint8  `yaml:"dpl"`
	Type      string `yaml:"type"`
	Present   bool   `yaml:"present"`
}

type dump struct {
	Source string     `yaml:"source"`
	Offset int64      `yaml:"offset"`
	Gates  []gateInfo `yaml:"gates"`
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[idtdump] error: %s\n", err.Error())
	os.Exit(1)
}

func gateTypeName(t uint8) string {
	switch t {
	case gate.InterruptGate:
		return "interrupt"
	case gate.TrapGate:
		return "trap"
	default:
		return fmt.Sprintf("0x%x", t)
	}
}

// decodeImage decodes the IDT image stored in data. Non-present gates are
// skipped unless all is set.
func decodeImage(data []byte, all bool) ([]gateInfo, error) {
	descriptors, kerr := gate.UnpackTable(data)
	if kerr != nil {
		return nil, kerr
	}

	var gates []gateInfo
	for vector, d := range descriptors {
		if !d.Present() && !all {
			continue
		}

		gates = append(gates, gateInfo{
			Vector:    uint8(vector),
			Exception: gate.InterruptNumber(vector).Name(),
			Base:      fmt.Sprintf("0x%016x", d.Base()),
			Selector:  fmt.Sprintf("0x%04x", d.Selector()),
			DPL:       d.PrivilegeLevel(),
			Type:      gateTypeName(d.GateType()),
			Present:   d.Present(),
		})
	}

	return gates, nil
}

func renderTable(w io.Writer, gates []gateInfo) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "VECTOR\tBASE\tSELECTOR\tDPL\tTYPE\tPRESENT\tEXCEPTION")
	for _, g := range gates {
		fmt.Fprintf(tw, "0x%02x\t%s\t%s\t%d\t%s\t%t\t%s\n",
			g.Vector, g.Base, g.Selector, g.DPL, g.Type, g.Present, g.Exception,
		)
	}
	return tw.Flush()
}

func renderYAML(w io.Writer, d dump) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&d); err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	return enc.Close()
}

// outputFormat resolves the "auto" format: aligned tables for a terminal and
// YAML for anything else.
func outputFormat(format string, isTerminal bool) (string, error) {
	switch format {
	case "table", "yaml":
		return format, nil
	case "auto":
		if isTerminal {
			return "table", nil
		}
		return "yaml", nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func run(w io.Writer, file string, offset int64, format string, all bool) error {
	image, release, err := mapImage(file, offset, gate.TableSize)
	if err != nil {
		return err
	}
	defer release()

	gates, err := decodeImage(image, all)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	switch format {
	case "table":
		return renderTable(w, gates)
	default:
		return renderYAML(w, dump{Source: file, Offset: offset, Gates: gates})
	}
}

func main() {
	var (
		format = flag.String("format", "auto", "output format: auto, table or yaml")
		offset = flag.Int64("offset", 0, "offset of the IDT inside the dump file")
		all    = flag.Bool("all", false, "include non-present gates")
	)
	flag.Parse()

	if len(flag.Args()) != 1 {
		exit(errors.New("usage: idtdump [flags] <idt image>"))
	}

	resolved, err := outputFormat(*format, term.IsTerminal(int(os.Stdout.Fd())))
	if err != nil {
		exit(err)
	}

	if err = run(os.Stdout, flag.Arg(0), *offset, resolved, *all); err != nil {
		exit(err)
	}
}
