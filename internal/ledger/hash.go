package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainUnit   = "slicec-cs/unit/v1"
	DomainSource = "slicec-cs/source/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// UnitHash hashes the text of one generated unit after NFC normalization.
func UnitHash(content string) string {
	return hashWithDomain(DomainUnit, norm.NFC.Bytes([]byte(content)))
}

type sourceEntity struct {
	Kind   string         `json:"kind"`
	Entity grammar.Entity `json:"entity"`
}

type sourceFile struct {
	Filename string          `json:"filename"`
	Module   *grammar.Module `json:"module,omitempty"`
	Entities []sourceEntity  `json:"entities"`
}

// SourceHash hashes the compiled definitions a run generated from. Files are
// hashed in the given order, which callers keep sorted.
func SourceHash(files []*grammar.File) (string, error) {
	doc := make([]sourceFile, len(files))
	for i, f := range files {
		sf := sourceFile{Filename: f.Filename, Module: f.Module, Entities: []sourceEntity{}}
		for _, e := range f.Entities {
			sf.Entities = append(sf.Entities, sourceEntity{Kind: e.Kind().String(), Entity: e})
		}
		doc[i] = sf
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "source hash")
	}
	return hashWithDomain(DomainSource, norm.NFC.Bytes(data)), nil
}
