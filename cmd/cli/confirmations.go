package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"intakegate/app"
	"intakegate/domain/intake"
	"intakegate/domain/intake/alias"
)

// confirmationFile is the operator-edited document passed to `run`. JSON is accepted too
// since it parses as YAML.
type confirmationFile struct {
	Confirmations []intake.Confirmation `yaml:"confirmations" json:"confirmations"`
	// Alternatives is informational; `run` ignores it.
	Alternatives []alternative `yaml:"alternatives,omitempty" json:"alternatives,omitempty"`
}

type alternative struct {
	File       intake.FileRole   `yaml:"file"`
	Field      intake.Field      `yaml:"field"`
	Required   bool              `yaml:"required"`
	Candidates []alias.Candidate `yaml:"candidates"`
}

const confirmationPreamble = `# Review every mapping below before running.
# Each confirmation binds a canonical field to one header of one file; the token ties it to
# the exact file contents, so re-run propose if a file changes.
# To pick another header, copy its header and token from the alternatives section.
# Remove a confirmation to leave a field unmapped.
`

func newConfirmationFile(set *app.ProposalSet, confirmedBy string) confirmationFile {
	doc := confirmationFile{Confirmations: make([]intake.Confirmation, len(set.Draft))}
	copy(doc.Confirmations, set.Draft)
	for i := range doc.Confirmations {
		doc.Confirmations[i].ConfirmedBy = confirmedBy
	}
	for _, fp := range set.Files {
		for _, p := range fp.Proposals {
			if len(p.Candidates) == 0 {
				continue
			}
			doc.Alternatives = append(doc.Alternatives, alternative{
				File: p.File, Field: p.Field, Required: p.Required, Candidates: p.Candidates,
			})
		}
	}
	return doc
}

func writeConfirmations(path string, doc confirmationFile) error {
	var buf bytes.Buffer
	buf.WriteString(confirmationPreamble)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode confirmations: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode confirmations: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// readConfirmations accepts either the document form or a bare list
func readConfirmations(path string) ([]intake.Confirmation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read confirmations: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse confirmations %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var list []intake.Confirmation
		if err := node.Decode(&list); err != nil {
			return nil, fmt.Errorf("parse confirmations %s: %w", path, err)
		}
		return list, nil
	}
	var doc confirmationFile
	if err := node.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse confirmations %s: %w", path, err)
	}
	return doc.Confirmations, nil
}
