package alias

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"intakegate/domain/core"
	"intakegate/domain/intake"
)

// DefaultSimilarityFloor is the lowest similarity score that still yields a proposal
const DefaultSimilarityFloor = 0.80

// Candidate is one header proposed for a field
type Candidate struct {
	Header   string             `json:"header" yaml:"header"`
	Position int                `json:"position" yaml:"position"`
	Method   intake.AliasMethod `json:"method" yaml:"method"`
	Score    float64            `json:"score" yaml:"score"`
	Token    string             `json:"token" yaml:"token"`
}

// Proposal lists the candidates for one canonical field of one file
type Proposal struct {
	File       intake.FileRole `json:"file" yaml:"file"`
	Field      intake.Field    `json:"field" yaml:"field"`
	Required   bool            `json:"required" yaml:"required"`
	Candidates []Candidate     `json:"candidates" yaml:"candidates"`
}

// Resolver proposes and applies header mappings
type Resolver struct {
	library *Library
	floor   float64
}

// NewResolver creates a resolver. A floor outside (0, 1] falls back to the default.
func NewResolver(library *Library, floor float64) *Resolver {
	if floor <= 0 || floor > 1 {
		floor = DefaultSimilarityFloor
	}
	return &Resolver{library: library, floor: floor}
}

// Token binds a confirmation to one file's content, role, field and header
func Token(fileHash core.Hash, role intake.FileRole, field intake.Field, header string) string {
	return core.NewFingerprint().Add(fileHash.String(), string(role), string(field), header).Sum().Short()
}

// Propose lists candidate headers for every field of the file's schema. It never applies
// a mapping and returns the same proposals for the same file.
func (r *Resolver) Propose(file intake.FileIdentity) []Proposal {
	schema := intake.SchemaFor(file.Role)
	proposals := make([]Proposal, 0, len(schema.Fields))

	for _, spec := range schema.Fields {
		p := Proposal{File: file.Role, Field: spec.Field, Required: spec.Required, Candidates: []Candidate{}}
		for pos, header := range file.Headers {
			method, score, ok := r.score(header, spec.Field)
			if !ok {
				continue
			}
			p.Candidates = append(p.Candidates, Candidate{
				Header:   header,
				Position: pos,
				Method:   method,
				Score:    score,
				Token:    Token(file.SHA256, file.Role, spec.Field, header),
			})
		}
		sort.SliceStable(p.Candidates, func(i, j int) bool {
			if p.Candidates[i].Score != p.Candidates[j].Score {
				return p.Candidates[i].Score > p.Candidates[j].Score
			}
			return p.Candidates[i].Position < p.Candidates[j].Position
		})
		proposals = append(proposals, p)
	}
	return proposals
}

func (r *Resolver) score(header string, field intake.Field) (intake.AliasMethod, float64, bool) {
	if known, method, ok := r.library.Lookup(header); ok {
		if known == field {
			return method, 1.0, true
		}
		// An exact variant of another field is never a near miss for this one.
		return "", 0, false
	}

	folded := Fold(header)
	best := 0.0
	for _, variant := range r.library.Variants(field) {
		if s := similarity(folded, variant); s > best {
			best = s
		}
	}
	if best >= r.floor {
		return intake.MethodSimilarity, best, true
	}
	return "", 0, false
}

// similarity is 1 - levenshtein/maxlen over runes, rounded to 4 places
func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	d := fuzzy.LevenshteinDistance(a, b)
	s := 1 - float64(d)/float64(longest)
	return float64(int(s*10000+0.5)) / 10000
}

// Apply builds the alias map from caller confirmations only. Confirmations for the other
// file are ignored; invalid ones are returned as rejections and never applied. When a
// required field stays unresolved the returned error is a MissingRequiredColumn halt.
func (r *Resolver) Apply(file intake.FileIdentity, proposals []Proposal, confirmations []intake.Confirmation) (intake.AliasMap, []intake.Rejection, error) {
	schema := intake.SchemaFor(file.Role)
	aliasMap := intake.AliasMap{Role: file.Role, Entries: []intake.AliasEntry{}}
	var rejections []intake.Rejection

	byField := map[intake.Field]intake.AliasEntry{}
	claimedHeaders := map[string]intake.Field{}

	for _, c := range confirmations {
		if c.File != file.Role {
			continue
		}
		reason := ""
		switch {
		case !schema.Contains(c.Field):
			reason = fmt.Sprintf("field %q is not part of the %s schema", c.Field, file.Role)
		case !file.HasHeader(c.Header):
			reason = fmt.Sprintf("header %q does not exist in the %s file", c.Header, file.Role)
		case c.Token != Token(file.SHA256, file.Role, c.Field, c.Header):
			reason = "confirmation token does not match this file, field and header"
		}
		if reason == "" {
			if _, dup := byField[c.Field]; dup {
				reason = fmt.Sprintf("field %s is already confirmed", c.Field)
			} else if other, dup := claimedHeaders[c.Header]; dup {
				reason = fmt.Sprintf("header %q is already confirmed for %s", c.Header, other)
			}
		}
		if reason != "" {
			rejections = append(rejections, intake.Rejection{Confirmation: c, Reason: reason})
			continue
		}

		method, score := intake.MethodManual, 0.0
		if cand, ok := findCandidate(proposals, file.Role, c.Field, c.Header); ok {
			method, score = cand.Method, cand.Score
		}
		byField[c.Field] = intake.AliasEntry{
			Field:       c.Field,
			Header:      c.Header,
			Token:       c.Token,
			Method:      method,
			Score:       score,
			ConfirmedBy: c.ConfirmedBy,
		}
		claimedHeaders[c.Header] = c.Field
	}

	for _, spec := range schema.Fields {
		if e, ok := byField[spec.Field]; ok {
			aliasMap.Entries = append(aliasMap.Entries, e)
		}
	}

	if missing := schema.Missing(aliasMap.Has); len(missing) > 0 {
		return aliasMap, rejections, intake.MissingRequiredColumn(file.Role, missing)
	}
	return aliasMap, rejections, nil
}

func findCandidate(proposals []Proposal, role intake.FileRole, field intake.Field, header string) (Candidate, bool) {
	for _, p := range proposals {
		if p.File != role || p.Field != field {
			continue
		}
		for _, c := range p.Candidates {
			if c.Header == header {
				return c, true
			}
		}
	}
	return Candidate{}, false
}

// Unmatched lists headers no field was confirmed for, in file order
func Unmatched(file intake.FileIdentity, aliasMap intake.AliasMap) []string {
	out := []string{}
	for _, h := range file.Headers {
		if _, ok := aliasMap.FieldFor(h); !ok {
			out = append(out, h)
		}
	}
	return out
}

// Draft turns proposals into a confirmation list an operator can edit: the best candidate
// per field, never reusing a header. It is a starting point for review, not a confirmation.
func Draft(proposals []Proposal, confirmedBy string) []intake.Confirmation {
	var out []intake.Confirmation
	used := map[intake.FileRole]map[string]bool{}
	for _, p := range proposals {
		if used[p.File] == nil {
			used[p.File] = map[string]bool{}
		}
		for _, c := range p.Candidates {
			if used[p.File][c.Header] {
				continue
			}
			used[p.File][c.Header] = true
			out = append(out, intake.Confirmation{
				File:        p.File,
				Field:       p.Field,
				Header:      c.Header,
				Token:       c.Token,
				ConfirmedBy: confirmedBy,
			})
			break
		}
	}
	return out
}
