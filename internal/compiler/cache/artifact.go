package cache

import (
	"fmt"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/wpkernel/wpkgen/internal/compiler/codegen"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/plan"
)

// SummaryFileName is written next to the generated files by WriteTo
const SummaryFileName = "wpkgen.build.json"

// File is one generated module file in encoded form
type File struct {
	Name      string          `json:"name"`
	Namespace string          `json:"namespace"`
	Kind      metadata.Kind   `json:"kind"`
	AST       json.RawMessage `json:"ast"`
	Metadata  json.RawMessage `json:"metadata"`
}

// Artifact is the cacheable result of a plan build. Everything in it is
// already encoded, so a cache hit never needs the syntax tree types.
type Artifact struct {
	Key          string                       `json:"key"`
	BuildID      string                       `json:"buildId"`
	Files        []File                       `json:"files"`
	Warnings     []errors.Warning             `json:"warnings"`
	Capabilities metadata.CapabilityMap       `json:"capabilities"`
	Fallbacks    []codegen.FallbackDiagnostic `json:"fallbacks"`
}

// NewArtifact encodes a build output
func NewArtifact(out *plan.Output) (*Artifact, error) {
	art := &Artifact{
		BuildID:      out.Result.BuildID,
		Files:        make([]File, 0, len(out.Result.Files)),
		Warnings:     out.Warnings,
		Capabilities: out.Capabilities,
		Fallbacks:    []codegen.FallbackDiagnostic{},
	}
	if art.Warnings == nil {
		art.Warnings = []errors.Warning{}
	}

	for _, f := range out.Result.Files {
		program, err := json.MarshalIndent(f.Program, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", f.FileName, err)
		}
		meta, err := metadata.Serialize(f.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata of %s: %w", f.FileName, err)
		}
		art.Files = append(art.Files, File{
			Name:      f.FileName,
			Namespace: f.Namespace,
			Kind:      f.Metadata.FileKind(),
			AST:       program,
			Metadata:  meta,
		})
		art.Fallbacks = append(art.Fallbacks, codegen.Fallbacks(f.Program)...)
	}
	return art, nil
}

// Encode serialises the artifact for a backend
func (a *Artifact) Encode() ([]byte, error) {
	return json.Marshal(a)
}

// DecodeArtifact reverses Encode
func DecodeArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("corrupt artifact: %w", err)
	}
	return &a, nil
}

// WriteTo writes <dir>/<name>.ast.json, <dir>/<name>.meta.json (when
// withMetadata) and the build summary. With compress every file gets a
// .gz suffix and is gzipped. It returns the written paths.
func (a *Artifact) WriteTo(dir string, withMetadata, compress bool) ([]string, error) {
	suffix := ""
	if compress {
		suffix = ".gz"
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, filepath.FromSlash(name)+suffix)
		if err := metadata.WriteBytes(path, data, compress); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	for _, f := range a.Files {
		if err := write(f.Name+".ast.json", f.AST); err != nil {
			return written, err
		}
		if withMetadata {
			if err := write(f.Name+".meta.json", f.Metadata); err != nil {
				return written, err
			}
		}
	}

	summary, err := json.MarshalIndent(struct {
		Key          string                       `json:"key"`
		BuildID      string                       `json:"buildId"`
		Files        []string                     `json:"files"`
		Warnings     []errors.Warning             `json:"warnings"`
		Capabilities metadata.CapabilityMap       `json:"capabilities"`
		Fallbacks    []codegen.FallbackDiagnostic `json:"fallbacks"`
	}{a.Key, a.BuildID, a.FileNames(), a.Warnings, a.Capabilities, a.Fallbacks}, "", "  ")
	if err != nil {
		return written, err
	}
	if err := write(SummaryFileName, summary); err != nil {
		return written, err
	}
	return written, nil
}

// FileNames lists the generated file names in build order
func (a *Artifact) FileNames() []string {
	names := make([]string, len(a.Files))
	for i, f := range a.Files {
		names[i] = f.Name
	}
	return names
}
