package engine

import (
	"sort"
	"strings"

	"github.com/karpella/ec2console/internal/aws/ec2"
)

// Key identifies one cached instance collection: a region plus the
// filter set applied to it.
type Key struct {
	Region  string
	Filters ec2.Filters
}

// String returns a canonical form that is independent of filter
// ordering. Two keys describing the same query always render the same
// string, which is what de-duplication and the entry registry key on.
func (k Key) String() string {
	states := make([]string, len(k.Filters.States))
	for i, s := range k.Filters.States {
		states[i] = string(s)
	}
	sort.Strings(states)

	types := append([]string(nil), k.Filters.Types...)
	sort.Strings(types)

	tagKeys := make([]string, 0, len(k.Filters.Tags))
	for key := range k.Filters.Tags {
		tagKeys = append(tagKeys, key)
	}
	sort.Strings(tagKeys)
	tags := make([]string, len(tagKeys))
	for i, key := range tagKeys {
		tags[i] = key + "=" + k.Filters.Tags[key]
	}

	var b strings.Builder
	b.WriteString("region=")
	b.WriteString(k.Region)
	b.WriteString("|states=")
	b.WriteString(strings.Join(states, ","))
	b.WriteString("|types=")
	b.WriteString(strings.Join(types, ","))
	b.WriteString("|tags=")
	b.WriteString(strings.Join(tags, ","))
	b.WriteString("|vpc=")
	b.WriteString(k.Filters.VpcID)
	b.WriteString("|zone=")
	b.WriteString(k.Filters.Zone)
	return b.String()
}
