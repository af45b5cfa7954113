package pdfa

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxTreeDepth bounds page and name tree recursion on malformed files.
const maxTreeDepth = 64

// page is a leaf of the page tree with its effective resources.
type page struct {
	number    int
	dict      types.Dict
	resources types.Dict
}

// collectPages walks the page tree in document order. Resources are
// inherited from ancestors when a page does not define its own.
func collectPages(ctx *model.Context) ([]page, error) {
	catalog, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	obj, found := catalog.Find("Pages")
	if !found {
		return nil, fmt.Errorf("catalog has no page tree")
	}
	root, err := ctx.DereferenceDict(obj)
	if err != nil || root == nil {
		return nil, fmt.Errorf("failed to read page tree root: %w", err)
	}

	var pages []page
	visited := map[int]bool{}
	if err := walkPageTree(ctx, root, nil, 0, visited, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func walkPageTree(ctx *model.Context, node, inherited types.Dict, depth int, visited map[int]bool, pages *[]page) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
	}

	resources := inherited
	if obj, found := node.Find("Resources"); found {
		if res, err := ctx.DereferenceDict(obj); err == nil && res != nil {
			resources = res
		}
	}

	kidsObj, hasKids := node.Find("Kids")
	if typ := node.NameEntry("Type"); (typ != nil && *typ == "Page") || !hasKids {
		*pages = append(*pages, page{number: len(*pages) + 1, dict: node, resources: resources})
		return nil
	}

	kids, err := ctx.DereferenceArray(kidsObj)
	if err != nil {
		return fmt.Errorf("failed to read page tree kids: %w", err)
	}
	for _, kid := range kids {
		if ref, ok := kid.(types.IndirectRef); ok {
			nr := ref.ObjectNumber.Value()
			if visited[nr] {
				return fmt.Errorf("page tree cycle at object %d", nr)
			}
			visited[nr] = true
		}
		child, err := ctx.DereferenceDict(kid)
		if err != nil || child == nil {
			continue
		}
		if err := walkPageTree(ctx, child, resources, depth+1, visited, pages); err != nil {
			return err
		}
	}
	return nil
}

// nameEntry dereferences d[key] as a name, returning "" when absent.
func nameEntry(ctx *model.Context, d types.Dict, key string) string {
	obj, found := d.Find(key)
	if !found || obj == nil {
		return ""
	}
	name, err := ctx.DereferenceName(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return name.Value()
}

// dictEntry dereferences d[key] as a dictionary, returning nil when absent.
func dictEntry(ctx *model.Context, d types.Dict, key string) types.Dict {
	obj, found := d.Find(key)
	if !found || obj == nil {
		return nil
	}
	sub, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil
	}
	return sub
}

// resourceDicts returns the named sub-dictionaries of a resource category,
// e.g. every entry of /ExtGState.
func resourceDicts(ctx *model.Context, resources types.Dict, category string) map[string]types.Dict {
	out := map[string]types.Dict{}
	if resources == nil {
		return out
	}
	group := dictEntry(ctx, resources, category)
	for name, obj := range group {
		if sd, _, err := ctx.DereferenceStreamDict(obj); err == nil && sd != nil {
			out[name] = sd.Dict
			continue
		}
		if d, err := ctx.DereferenceDict(obj); err == nil && d != nil {
			out[name] = d
		}
	}
	return out
}

// numberEntry dereferences d[key] as a number.
func numberEntry(ctx *model.Context, d types.Dict, key string) (float64, bool) {
	obj, found := d.Find(key)
	if !found || obj == nil {
		return 0, false
	}
	f, err := ctx.DereferenceNumber(obj)
	if err != nil {
		return 0, false
	}
	return f, true
}
