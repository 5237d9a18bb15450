package classify

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entity types assigned to result domains.
const (
	EntityGovernment = "government"
	EntityEducation  = "education"
	EntityNonprofit  = "nonprofit"
	EntityDirectory  = "directory"
	EntityCommercial = "commercial"
)

var directoryDomains = []string{
	"yelp.ca", "yelp.com", "yellowpages.ca", "yellowpages.com",
	"psychologytoday.com", "healthgrades.com",
}

// EntityClassifier assigns an entity type to a domain from TLD and
// known-directory rules, with manual overrides taking absolute precedence.
type EntityClassifier struct {
	overrides map[string]string
}

// NewEntityClassifier parses an optional YAML override table mapping domain
// to entity type. A nil or empty table is valid.
func NewEntityClassifier(overridesYAML []byte) (*EntityClassifier, error) {
	c := &EntityClassifier{overrides: map[string]string{}}
	if len(overridesYAML) == 0 {
		return c, nil
	}
	if err := yaml.Unmarshal(overridesYAML, &c.overrides); err != nil {
		return nil, fmt.Errorf("parse domain overrides: %w", err)
	}
	return c, nil
}

// Classify returns the entity type for a domain. Unknown or empty domains
// default to commercial, the weakest claim.
func (c *EntityClassifier) Classify(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return EntityCommercial
	}
	if override, ok := c.overrides[domain]; ok {
		return override
	}
	switch {
	case strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".gc.ca"):
		return EntityGovernment
	case strings.HasSuffix(domain, ".edu"):
		return EntityEducation
	}
	for _, d := range directoryDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return EntityDirectory
		}
	}
	if strings.HasSuffix(domain, ".org") {
		return EntityNonprofit
	}
	return EntityCommercial
}
