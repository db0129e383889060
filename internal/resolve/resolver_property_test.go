//go:build property

package resolve

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/starford/mdserve/internal/testutil"
)

func TestResolverProperties(t *testing.T) {
	tree, _, _ := testutil.NestedTree(t,
		map[string]string{"docs/guide.md": "g", "README.md": "r", "a/b/c.md": "c"},
		map[string]string{"secret.md": "outside", "other/x.md": "outside"},
	)
	r := New(tree, Options{})

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	segment := gen.OneConstOf("docs", "a", "b", "guide", "c.md", "secret.md", "other",
		"..", ".", "%2e%2e", "%2E%2e", "..%2f..", "%2f", "", "%00", "%zz", "root")

	// Property: nothing outside the root is ever chosen
	properties.Property("containment", prop.ForAll(
		func(segs []string) bool {
			out := r.Resolve(context.Background(), "/"+strings.Join(segs, "/"))
			switch out.Kind {
			case KindDenied:
				return out.Path == "" && out.Requested == ""
			default:
				return tree.Contains(out.Path)
			}
		},
		gen.SliceOfN(5, segment),
	))

	// Property: a decoded path that climbs above the root is always denied
	properties.Property("underflow denied", prop.ForAll(
		func(depth int) bool {
			p := strings.Repeat("/..", depth) + "/secret.md"
			return r.Resolve(context.Background(), p).Kind == KindDenied
		},
		gen.IntRange(1, 8),
	))

	// Property: resolution does not depend on call history
	properties.Property("idempotence", prop.ForAll(
		func(segs []string) bool {
			p := "/" + strings.Join(segs, "/")
			return r.Resolve(context.Background(), p) == r.Resolve(context.Background(), p)
		},
		gen.SliceOfN(4, segment),
	))

	properties.TestingRun(t)
}
