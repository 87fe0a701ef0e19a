package odrl

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Vocabulary is the per-run allowed-term set a generated document may
// reference, on top of the fixed core action/operator/operand terms.
//
// A Vocabulary is loaded once per pipeline run and passed explicitly; it is
// never mutated after loading, so concurrent runs can share one instance.
type Vocabulary struct {
	// Parties are the allowed party identifiers (assignees/assigners).
	Parties []string `yaml:"parties"`

	// Assets are the allowed asset identifiers (rule targets).
	Assets []string `yaml:"assets"`

	// Purposes are the allowed purpose constraint values.
	Purposes []string `yaml:"purposes"`

	// Regions are the allowed spatial constraint values.
	Regions []string `yaml:"regions"`

	// RoleMembers maps a role to the specific parties it contains, e.g.
	// "partner" -> ["uc4_partner", "archive_partner"].
	RoleMembers map[string][]string `yaml:"role_members"`

	// RegionParents maps a region to the broader region containing it, e.g.
	// "berlin" -> "germany", "germany" -> "eu".
	RegionParents map[string]string `yaml:"region_parents"`

	parties  map[string]struct{}
	assets   map[string]struct{}
	purposes map[string]struct{}
	regions  map[string]struct{}
}

// LoadVocabulary reads a vocabulary YAML file.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary file: %w", err)
	}
	v.index()
	return &v, nil
}

// NewVocabulary builds a vocabulary from in-memory term lists.
func NewVocabulary(parties, assets, purposes, regions []string) *Vocabulary {
	v := &Vocabulary{Parties: parties, Assets: assets, Purposes: purposes, Regions: regions}
	v.index()
	return v
}

func (v *Vocabulary) index() {
	v.parties = toSet(v.Parties)
	v.assets = toSet(v.Assets)
	v.purposes = toSet(v.Purposes)
	v.regions = toSet(v.Regions)
}

func toSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

// HasParty reports whether the party identifier is declared.
func (v *Vocabulary) HasParty(term string) bool {
	if _, ok := v.parties[term]; ok {
		return true
	}
	// Roles are addressable as parties.
	_, ok := v.RoleMembers[term]
	return ok
}

// HasAsset reports whether the asset identifier is declared.
func (v *Vocabulary) HasAsset(term string) bool {
	_, ok := v.assets[term]
	return ok
}

// HasPurpose reports whether the purpose value is declared.
func (v *Vocabulary) HasPurpose(term string) bool {
	_, ok := v.purposes[term]
	return ok
}

// HasRegion reports whether the region value is declared.
func (v *Vocabulary) HasRegion(term string) bool {
	_, ok := v.regions[term]
	return ok
}

// RegionContains reports whether broad contains narrow in the region
// hierarchy (directly or transitively). A region contains itself.
func (v *Vocabulary) RegionContains(broad, narrow string) bool {
	seen := map[string]struct{}{}
	for narrow != "" {
		if narrow == broad {
			return true
		}
		if _, ok := seen[narrow]; ok {
			return false // defensive against cyclic input
		}
		seen[narrow] = struct{}{}
		narrow = v.RegionParents[narrow]
	}
	return false
}

// RoleContains reports whether party is a member of role.
func (v *Vocabulary) RoleContains(role, party string) bool {
	for _, member := range v.RoleMembers[role] {
		if member == party {
			return true
		}
	}
	return false
}

// Terms returns every declared per-run term, sorted, for prompt rendering.
func (v *Vocabulary) Terms() []string {
	var all []string
	all = append(all, v.Parties...)
	all = append(all, v.Assets...)
	all = append(all, v.Purposes...)
	all = append(all, v.Regions...)
	for role := range v.RoleMembers {
		all = append(all, role)
	}
	sort.Strings(all)
	return all
}
