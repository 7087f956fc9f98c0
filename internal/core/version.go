package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"
)

// opaqueRevision matches commit and content hashes, which carry no order.
var opaqueRevision = regexp.MustCompile(`^[0-9a-f]{7,64}$`)

// revisionCache memoizes parsed module revisions. PEP 440 is tried first;
// Debian syntax covers date-style and epoch revisions PEP 440 rejects.
type revisionCache struct {
	pep map[string]pep440.Version
	deb map[string]debversion.Version
}

func newRevisionCache() *revisionCache {
	return &revisionCache{
		pep: map[string]pep440.Version{},
		deb: map[string]debversion.Version{},
	}
}

func (c *revisionCache) pepVersion(value string) (pep440.Version, error) {
	if parsed, ok := c.pep[value]; ok {
		return parsed, nil
	}
	parsed, err := pep440.Parse(value)
	if err != nil {
		return pep440.Version{}, err
	}
	c.pep[value] = parsed
	return parsed, nil
}

func (c *revisionCache) debVersion(value string) (debversion.Version, error) {
	if parsed, ok := c.deb[value]; ok {
		return parsed, nil
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		return debversion.Version{}, err
	}
	c.deb[value] = parsed
	return parsed, nil
}

func isOpaque(revision string) bool {
	return opaqueRevision.MatchString(revision) && strings.ContainsAny(revision, "abcdef")
}

// compare orders two revisions; ok is false when they share no scheme.
func (c *revisionCache) compare(a string, b string) (int, bool) {
	if a == b {
		return 0, true
	}
	if isOpaque(a) || isOpaque(b) {
		return 0, false
	}
	if v1, err := c.pepVersion(a); err == nil {
		if v2, err := c.pepVersion(b); err == nil {
			return v1.Compare(v2), true
		}
	}
	v1, err := c.debVersion(a)
	if err != nil {
		return 0, false
	}
	v2, err := c.debVersion(b)
	if err != nil {
		return 0, false
	}
	return v1.Compare(v2), true
}

// CompareRevisions returns -1, 0, or 1 comparing two module revisions.
// Hash revisions and revisions of different schemes are not comparable.
func CompareRevisions(a string, b string) (int, error) {
	result, ok := newRevisionCache().compare(a, b)
	if !ok {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("revisions %q and %q are not comparable", a, b))
	}
	return result, nil
}

// CheckUpgrade refuses to replace an installed revision with an older one
// unless forced. Incomparable revisions are allowed.
func CheckUpgrade(installed string, incoming string, force bool) error {
	if installed == "" || force {
		return nil
	}
	result, err := CompareRevisions(incoming, installed)
	if err != nil {
		return nil
	}
	if result < 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("installed revision %s is newer than %s; use --force to downgrade", installed, incoming))
	}
	return nil
}
