package eval

import (
	"testing"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

func TestScopeLookupAndShadowing(t *testing.T) {
	root := NewRootScope()
	root.Set("a", types.Collection{types.NewInteger(1)})

	child := ChildOf(root)
	if v, ok := child.Get("a"); !ok || !v[0].Equal(types.NewInteger(1)) {
		t.Fatal("child must see parent bindings")
	}

	child.Set("a", types.Collection{types.NewInteger(2)})
	if v, _ := child.Get("a"); !v[0].Equal(types.NewInteger(2)) {
		t.Error("child binding must shadow the parent")
	}
	if v, _ := root.Get("a"); !v[0].Equal(types.NewInteger(1)) {
		t.Error("parent binding must be unchanged")
	}
}

func TestScopeCopyOnWrite(t *testing.T) {
	root := NewRootScope()
	root.Set("x", types.Collection{types.NewInteger(10)})
	root.Set("y", types.Collection{types.NewInteger(20)})

	child := ChildOf(root)
	grandchild := ChildOf(child)

	// Writing in the grandchild never touches the ancestors.
	grandchild.Set("x", types.Collection{types.NewInteger(99)})
	grandchild.Set("z", types.Collection{types.NewInteger(30)})

	if v, _ := root.Get("x"); !v[0].Equal(types.NewInteger(10)) {
		t.Error("root x changed")
	}
	if _, ok := root.Get("z"); ok {
		t.Error("root must not see grandchild bindings")
	}
	if v, _ := child.Get("x"); !v[0].Equal(types.NewInteger(10)) {
		t.Error("child x changed")
	}
	if v, _ := grandchild.Get("x"); !v[0].Equal(types.NewInteger(99)) {
		t.Error("grandchild write lost")
	}
	if v, _ := grandchild.Get("y"); !v[0].Equal(types.NewInteger(20)) {
		t.Error("grandchild must still see inherited y")
	}
}

func TestScopeCollectAll(t *testing.T) {
	root := NewRootScope()
	root.Set("a", types.Collection{types.NewInteger(1)})
	child := ChildOf(root)
	child.Set("a", types.Collection{types.NewInteger(2)})
	child.Set("b", types.Collection{types.NewInteger(3)})

	all := child.CollectAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 names, got %d", len(all))
	}
	if !all["a"][0].Equal(types.NewInteger(2)) {
		t.Error("nearest binding must win")
	}
}

func TestReservedNames(t *testing.T) {
	for _, name := range []string{"this", "index", "total", "context", "resource", "$x", "ucum"} {
		if !IsReservedName(name) {
			t.Errorf("%s must be reserved", name)
		}
	}
	if IsReservedName("myVar") {
		t.Error("myVar must not be reserved")
	}
}
