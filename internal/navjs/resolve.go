package navjs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"

	"github.com/dgallion1/docnav/internal/navtree"
)

// ErrRefCycle is returned when a deferred subtree names itself or one of its
// ancestors.
var ErrRefCycle = errors.New("navjs: subtree reference cycle")

// Resolve loads `<ref>.js` from fsys for every deferred node in tree,
// recursively, and grafts the entries in as inline children. It returns the
// subtree scripts it read in load order.
func Resolve(ctx context.Context, fsys fs.FS, tree navtree.Tree) ([]*navtree.Subtree, error) {
	r := &resolver{fsys: fsys}
	if err := r.resolve(ctx, tree, nil); err != nil {
		return nil, err
	}
	return r.loaded, nil
}

type resolver struct {
	fsys   fs.FS
	loaded []*navtree.Subtree
}

func (r *resolver) resolve(ctx context.Context, nodes []*navtree.Node, refs []string) error {
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n.Ref != "" {
			if slices.Contains(refs, n.Ref) {
				return fmt.Errorf("%w: %v -> %s", ErrRefCycle, refs, n.Ref)
			}
			st, err := r.load(n.Ref)
			if err != nil {
				return err
			}
			r.loaded = append(r.loaded, st)
			if err := r.resolve(ctx, st.Nodes, append(refs, n.Ref)); err != nil {
				return err
			}
			n.Children = st.Nodes
			n.Ref = ""
			continue
		}
		if err := r.resolve(ctx, n.Children, refs); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) load(name string) (*navtree.Subtree, error) {
	f, err := r.fsys.Open(path.Clean(name + ".js"))
	if err != nil {
		return nil, fmt.Errorf("open subtree %s: %w", name, err)
	}
	defer f.Close()
	st, err := DecodeSubtree(f)
	if err != nil {
		return nil, fmt.Errorf("decode subtree %s: %w", name, err)
	}
	if st.Name != name {
		return nil, fmt.Errorf("decode subtree %s: script defines %q", name, st.Name)
	}
	return st, nil
}

// Load decodes the navigation script at name in fsys and resolves its
// deferred subtrees from the same directory.
func Load(ctx context.Context, fsys fs.FS, name string) (*navtree.Document, []*navtree.Subtree, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	doc, err := Decode(f)
	f.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", name, err)
	}
	dir := path.Dir(name)
	sub := fsys
	if dir != "." {
		if sub, err = fs.Sub(fsys, dir); err != nil {
			return nil, nil, err
		}
	}
	loaded, err := Resolve(ctx, sub, doc.Tree)
	if err != nil {
		return nil, nil, err
	}
	return doc, loaded, nil
}
