// Package artifacts loads Foundry build output and encodes constructor
// arguments against a contract's ABI.
package artifacts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/worldcoin/world-id-example-airdrop/linker"
)

// ErrNotFound is returned when no artifact exists for a contract name.
var ErrNotFound = errors.New("artifact not found")

// LinkReference is one library slot in unlinked bytecode.
type LinkReference struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// Bytecode is the hex creation code of a contract.
type Bytecode struct {
	Object         string                                `json:"object"`
	LinkReferences map[string]map[string][]LinkReference `json:"linkReferences,omitempty"`
}

// UnmarshalJSON accepts both a bare hex string and the Foundry object form.
func (b *Bytecode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.Object = s
		return nil
	}

	var obj struct {
		Object         string                                `json:"object"`
		LinkReferences map[string]map[string][]LinkReference `json:"linkReferences"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("bytecode must be a string or object with 'object' field")
	}
	b.Object = obj.Object
	b.LinkReferences = obj.LinkReferences
	return nil
}

type Metadata struct {
	Settings struct {
		CompilationTarget map[string]string `json:"compilationTarget"`
	} `json:"settings"`
}

// UnmarshalJSON accepts metadata embedded either as an object or as the raw
// JSON string solc emits.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type plain Metadata
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			return nil
		}
		data = []byte(s)
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse metadata: %w", err)
	}
	*m = Metadata(p)
	return nil
}

// Artifact is a compiled contract as written by forge build.
type Artifact struct {
	Name     string          `json:"-"`
	Path     string          `json:"-"`
	ABI      json.RawMessage `json:"abi"`
	Bytecode Bytecode        `json:"bytecode"`
	Metadata Metadata        `json:"metadata"`
}

// SourceID returns the fully qualified "path:Name" of the contract, or an
// empty string when the artifact carries no compilation target.
func (a *Artifact) SourceID() string {
	for path, name := range a.Metadata.Settings.CompilationTarget {
		return path + ":" + name
	}
	return ""
}

// Placeholders returns every placeholder form under which library may
// appear in this artifact's bytecode.
func (a *Artifact) Placeholders(library string) []string {
	var out []string
	files := make([]string, 0, len(a.Bytecode.LinkReferences))
	for file := range a.Bytecode.LinkReferences {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		if _, ok := a.Bytecode.LinkReferences[file][library]; ok {
			out = append(out, linker.Placeholder(file+":"+library))
		}
	}
	return append(out, linker.LegacyPlaceholder(library))
}

// ParsedABI parses the artifact's ABI.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	if len(a.ABI) == 0 {
		return abi.ABI{}, nil
	}
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI for %s: %w", a.Name, err)
	}
	return parsed, nil
}

// EncodeConstructor ABI-encodes string constructor arguments.
func (a *Artifact) EncodeConstructor(args []string) ([]byte, error) {
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, err
	}
	inputs := parsed.Constructor.Inputs
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("%s: argument count mismatch: got %d, constructor takes %d", a.Name, len(args), len(inputs))
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	values, err := convertArguments(args, inputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name, err)
	}
	packed, err := parsed.Pack("", values...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constructor arguments for %s: %w", a.Name, err)
	}
	return packed, nil
}

// Store reads artifacts from a Foundry output directory.
type Store struct {
	dir   string
	cache map[string]*Artifact
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, cache: make(map[string]*Artifact)}
}

func (s *Store) Dir() string {
	return s.dir
}

// Load returns the artifact for contract, looking first at
// <dir>/<contract>.sol/<contract>.json and then anywhere under dir.
func (s *Store) Load(contract string) (*Artifact, error) {
	if a, ok := s.cache[contract]; ok {
		return a, nil
	}

	path, err := s.find(contract)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	if a.Bytecode.Object == "" || a.Bytecode.Object == "0x" {
		return nil, fmt.Errorf("artifact %s has no bytecode", path)
	}
	a.Name = contract
	a.Path = path

	s.cache[contract] = &a
	return &a, nil
}

func (s *Store) find(contract string) (string, error) {
	direct := filepath.Join(s.dir, contract+".sol", contract+".json")
	if _, err := os.Stat(direct); err == nil {
		return direct, nil
	}

	var found string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == contract+".json" {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to search artifacts in %s: %w", s.dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s in %s", ErrNotFound, contract, s.dir)
	}
	return found, nil
}
