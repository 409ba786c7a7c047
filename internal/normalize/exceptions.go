package normalize

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExceptionSet holds canonical upper-case model names that bypass generic
// capitalization. Members are stored upper-cased and trimmed.
type ExceptionSet map[string]struct{}

// Contains reports whether upper (already upper-cased) is a member.
func (s ExceptionSet) Contains(upper string) bool {
	_, ok := s[upper]
	return ok
}

// Names returns the members in sorted order.
func (s ExceptionSet) Names() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewExceptionSet builds a set from names, upper-casing and trimming each.
// Blank names are ignored.
func NewExceptionSet(names ...string) ExceptionSet {
	s := make(ExceptionSet, len(names))
	for _, n := range names {
		n = settle(strings.TrimSpace(n), strings.ToUpper)
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

var builtinModels = []string{
	// Mercedes-Benz
	"GLA", "GLB", "GLC", "GLE", "GLS", "CLA", "CLS", "SLK", "SLC", "SL", "EQA", "EQB", "EQC", "EQE", "EQS", "AMG GT",
	// BMW
	"X1", "X2", "X3", "X4", "X5", "X6", "X7", "Z4", "M2", "M3", "M4", "M5", "M8", "I3", "I4", "I5", "I7", "IX", "IX1", "IX3",
	// Audi
	"A1", "A3", "A4", "A5", "A6", "A7", "A8", "Q2", "Q3", "Q4", "Q5", "Q7", "Q8", "TT", "RS3", "RS4", "RS6", "S3", "SQ5", "E-TRON",
	// Volkswagen group
	"ID.3", "ID.4", "ID.5", "ID.7", "ID.BUZZ", "GTI", "CUPRA",
	// Volvo
	"XC40", "XC60", "XC90", "V40", "V60", "V90", "S60", "S90", "EX30", "EX90",
	// Mazda / Toyota / Lexus / Honda
	"CX-3", "CX-30", "CX-5", "CX-60", "MX-5", "RAV4", "C-HR", "GR86", "GT86", "UX", "NX", "RX", "CR-V", "HR-V", "ZR-V",
	// Jaguar / Land Rover
	"XE", "XF", "E-PACE", "F-PACE", "I-PACE", "F-TYPE",
	// Peugeot / Citroën / DS
	"DS3", "DS4", "DS7", "C3", "C4", "C5", "E-208", "E-2008",
	// Fiat / Kia / Hyundai
	"500X", "500L", "500E", "EV6", "EV9", "XCEED", "IONIQ 5", "IONIQ 6", "I10", "I20", "I30", "IX35",
}

// DefaultExceptions returns a fresh copy of the built-in exception set.
func DefaultExceptions() ExceptionSet { return NewExceptionSet(builtinModels...) }

// exceptionsFile is the on-disk shape of an exceptions extension file:
//
//	models:
//	  - GR YARIS
//	  - ID.2ALL
type exceptionsFile struct {
	Models []string `yaml:"models"`
}

// LoadExceptions reads a YAML extension file and returns the built-in set
// plus its entries. An empty path returns DefaultExceptions.
func LoadExceptions(path string) (ExceptionSet, error) {
	set := DefaultExceptions()
	if strings.TrimSpace(path) == "" {
		return set, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exceptions file: %w", err)
	}
	var f exceptionsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode exceptions file %s: %w", path, err)
	}
	for k := range NewExceptionSet(f.Models...) {
		set[k] = struct{}{}
	}
	return set, nil
}
