package docs

import (
	"fmt"
	"strings"
)

// PrefixPaths prefixes every key of the top-level "paths" object, so a
// downstream "/items" is published as "/orders/items". Documents without
// a paths object are left alone.
func PrefixPaths(prefix string) Transform {
	prefix = "/" + strings.Trim(prefix, "/")

	return func(doc *Node) error {
		if prefix == "/" {
			return nil
		}
		if doc.Kind != KindObject {
			return fmt.Errorf("document root is a %s, not an object", doc.Kind)
		}

		paths := doc.Get("paths")
		if paths == nil {
			return nil
		}
		if paths.Kind != KindObject {
			return fmt.Errorf("paths is a %s, not an object", paths.Kind)
		}

		seen := make(map[string]bool, len(paths.Members))
		for i, m := range paths.Members {
			key := prefix + "/" + strings.TrimLeft(m.Key, "/")
			if m.Key == "" || m.Key == "/" {
				key = prefix
			}
			if seen[key] {
				return fmt.Errorf("prefixed path %q is duplicated", key)
			}
			seen[key] = true
			paths.Members[i].Key = key
		}
		return nil
	}
}
