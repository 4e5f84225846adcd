package main

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/redknight990/sick-os-64/kernel/gate"
	"gopkg.in/yaml.v3"
)

// tableSection is the ELF section reserved by the rt0 code for the
// trampoline address table.
const tableSection = ".trampolinetbl"

type trampoline struct {
	id     gate.Trampoline
	symbol string
	vma    uint64
}

// manifest is the YAML report written by the -manifest flag.
type manifest struct {
	Image       string          `yaml:"image"`
	Section     string          `yaml:"section"`
	Offset      string          `yaml:"offset"`
	Trampolines []manifestEntry `yaml:"trampolines"`
}

type manifestEntry struct {
	ID       int    `yaml:"id"`
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Fallback bool   `yaml:"fallback,omitempty"`
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[trampolines] error: %s\n", err.Error())
	os.Exit(1)
}

func warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[trampolines] warning: "+format+"\n", args...)
}

// trampolineList returns one entry per trampoline in table order.
func trampolineList() []*trampoline {
	list := make([]*trampoline, gate.TrampolineCount)
	for i := range list {
		id := gate.Trampoline(i)
		list[i] = &trampoline{id: id, symbol: id.Symbol()}
	}

	return list
}

// resolveSymbols looks up the address of each trampoline. The ignore
// trampoline is mandatory; the kernel falls back to it for any other stub
// that is missing so those only generate a warning.
func resolveSymbols(list []*trampoline, symbols []elf.Symbol) error {
	addrs := make(map[string]uint64, len(symbols))
	for _, symbol := range symbols {
		addrs[symbol.Name] = symbol.Value
	}

	for _, t := range list {
		t.vma = addrs[t.symbol]
		if t.vma != 0 {
			continue
		}

		if t.id == gate.TrampolineIgnore {
			return fmt.Errorf("could not locate address of %q", t.symbol)
		}
		warn("could not locate address of %q; it will be routed to %q", t.symbol, gate.TrampolineIgnore.Symbol())
	}

	return nil
}

// encodeTable returns the little-endian image of the address table.
func encodeTable(list []*trampoline) []byte {
	buf := make([]byte, 8*len(list))
	for i, t := range list {
		binary.LittleEndian.PutUint64(buf[i*8:], t.vma)
	}

	return buf
}

func elfTrampolineTableOffset(imgFile string) (uint64, error) {
	f, err := elf.Open(imgFile)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	section := f.Section(tableSection)
	if section == nil {
		return 0, fmt.Errorf("%s: missing %s section", imgFile, tableSection)
	}

	if need := uint64(8 * gate.TrampolineCount); section.Size < need {
		return 0, fmt.Errorf("%s: %s section is %d bytes; need %d", imgFile, tableSection, section.Size, need)
	}

	return section.Offset, nil
}

func elfSymbols(imgFile string) ([]elf.Symbol, error) {
	f, err := elf.Open(imgFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.Symbols()
}

// patchFile writes table into imgFile at the given offset.
func patchFile(imgFile string, offset uint64, table []byte) error {
	f, err := os.OpenFile(imgFile, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = f.WriteAt(table, int64(offset)); err != nil {
		return err
	}

	return f.Sync()
}

func buildManifest(imgFile string, offset uint64, list []*trampoline) manifest {
	m := manifest{
		Image:   imgFile,
		Section: tableSection,
		Offset:  fmt.Sprintf("0x%x", offset),
	}

	ignoreVMA := list[gate.TrampolineIgnore].vma
	for _, t := range list {
		entry := manifestEntry{ID: int(t.id), Symbol: t.symbol}
		if t.vma == 0 {
			entry.Address = fmt.Sprintf("0x%016x", ignoreVMA)
			entry.Fallback = true
		} else {
			entry.Address = fmt.Sprintf("0x%016x", t.vma)
		}
		m.Trampolines = append(m.Trampolines, entry)
	}

	return m
}

func writeManifest(w io.Writer, m manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return enc.Close()
}

func populateTable(imgFile, manifestFile string) error {
	symbols, err := elfSymbols(imgFile)
	if err != nil {
		return err
	}

	list := trampolineList()
	if err = resolveSymbols(list, symbols); err != nil {
		return fmt.Errorf("%s: %w", imgFile, err)
	}

	offset, err := elfTrampolineTableOffset(imgFile)
	if err != nil {
		return err
	}

	if err = patchFile(imgFile, offset, encodeTable(list)); err != nil {
		return err
	}

	if manifestFile == "" {
		return nil
	}

	f, err := os.Create(manifestFile)
	if err != nil {
		return err
	}
	defer f.Close()

	return writeManifest(f, buildManifest(imgFile, offset, list))
}

func main() {
	manifestFile := flag.String("manifest", "", "write a YAML report of the resolved trampolines to this file")
	flag.Parse()
	if matches, _ := filepath.Glob("kernel/"); len(matches) != 1 {
		exit(errors.New("this tool must be run from the kernel root folder"))
	}

	if len(flag.Args()) == 0 {
		exit(errors.New("missing command"))
	}

	switch cmd := flag.Arg(0); cmd {
	case "count":
		fmt.Printf("%d", gate.TrampolineCount)
	case "populate-table":
		if len(flag.Args()) != 2 {
			exit(errors.New("populate-table requires the path to the kernel image as an argument"))
		}

		if err := populateTable(flag.Arg(1), *manifestFile); err != nil {
			exit(err)
		}
	default:
		exit(fmt.Errorf("unknown command %q", cmd))
	}
}
