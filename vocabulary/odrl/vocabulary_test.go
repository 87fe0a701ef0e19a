package odrl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabularyLookups(t *testing.T) {
	v := NewVocabulary(
		[]string{"uc4_partner", "data_consumer"},
		[]string{"traffic_dataset"},
		[]string{"research", "marketing"},
		[]string{"eu", "germany", "berlin"},
	)

	assert.True(t, v.HasParty("uc4_partner"))
	assert.False(t, v.HasParty("stranger"))
	assert.True(t, v.HasAsset("traffic_dataset"))
	assert.False(t, v.HasAsset("other_dataset"))
	assert.True(t, v.HasPurpose("research"))
	assert.False(t, v.HasPurpose("profiling"))
	assert.True(t, v.HasRegion("berlin"))
	assert.False(t, v.HasRegion("mars"))
}

func TestRegionContains(t *testing.T) {
	v := NewVocabulary(nil, nil, nil, []string{"eu", "germany", "berlin"})
	v.RegionParents = map[string]string{
		"berlin":  "germany",
		"germany": "eu",
	}

	assert.True(t, v.RegionContains("eu", "berlin"), "transitive containment")
	assert.True(t, v.RegionContains("germany", "berlin"))
	assert.True(t, v.RegionContains("berlin", "berlin"), "region contains itself")
	assert.False(t, v.RegionContains("berlin", "eu"), "containment is directional")
	assert.False(t, v.RegionContains("eu", "nowhere"))
}

func TestRegionContainsCyclicInput(t *testing.T) {
	v := NewVocabulary(nil, nil, nil, []string{"a", "b"})
	v.RegionParents = map[string]string{"a": "b", "b": "a"}

	// Must terminate and report no containment for an unrelated region.
	assert.False(t, v.RegionContains("c", "a"))
}

func TestRoleMembership(t *testing.T) {
	v := NewVocabulary([]string{"uc4_partner"}, nil, nil, nil)
	v.RoleMembers = map[string][]string{
		"partner": {"uc4_partner", "archive_partner"},
	}

	assert.True(t, v.RoleContains("partner", "uc4_partner"))
	assert.False(t, v.RoleContains("partner", "outsider"))
	assert.True(t, v.HasParty("partner"), "roles are addressable as parties")
}

func TestLoadVocabulary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	content := `
parties:
  - uc4_partner
assets:
  - traffic_dataset
purposes:
  - research
regions:
  - eu
  - germany
role_members:
  partner:
    - uc4_partner
region_parents:
  germany: eu
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v, err := LoadVocabulary(path)
	require.NoError(t, err)

	assert.True(t, v.HasParty("uc4_partner"))
	assert.True(t, v.HasAsset("traffic_dataset"))
	assert.True(t, v.RegionContains("eu", "germany"))
	assert.True(t, v.RoleContains("partner", "uc4_partner"))
}

func TestLoadVocabularyMissingFile(t *testing.T) {
	_, err := LoadVocabulary("/does/not/exist.yaml")
	assert.Error(t, err)
}
