package frontend

import (
	"errors"
	"os"
	"sort"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// LoadMode requests everything needed to build SSA for the loaded
// packages. Should be equivalent to packages.LoadAllSyntax (deprecated).
const LoadMode = packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedTypes |
	packages.NeedTypesSizes | packages.NeedImports | packages.NeedName |
	packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedDeps

// LoadPackages loads the packages matching the given patterns in the
// current directory.
func LoadPackages(patterns ...string) ([]*packages.Package, error) {
	return LoadPackagesWithConfig(&packages.Config{Mode: LoadMode}, patterns...)
}

func LoadPackagesWithConfig(config *packages.Config, queries ...string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(config, queries...)
	switch {
	case err != nil:
		return nil, err
	case packages.PrintErrors(pkgs) > 0:
		return pkgs, errors.New("errors encountered while loading packages")
	default:
		return pkgs, nil
	}
}

// LoadSource loads a single package from an in-memory source string,
// using the packages Overlay mechanism. Intended for tests and examples.
func LoadSource(source string) ([]*packages.Package, error) {
	config := &packages.Config{
		Mode: LoadMode,
		Env:  append(os.Environ(), "GO111MODULE=off", "GOPATH=/fake"),
		Overlay: map[string][]byte{
			"/fake/testpackage/main.go": []byte(source),
		},
	}

	return LoadPackagesWithConfig(config, "/fake/testpackage/main.go")
}

// BuildSSA builds SSA form for the loaded packages.
func BuildSSA(pkgs []*packages.Package) (*ssa.Program, []*ssa.Package) {
	prog, spkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()
	return prog, spkgs
}

// SourceFunctions returns the package-level functions (and methods of
// package-level named types) that have bodies, sorted by name.
func SourceFunctions(spkgs []*ssa.Package) []*ssa.Function {
	var funs []*ssa.Function
	for _, pkg := range spkgs {
		if pkg == nil {
			continue
		}
		for _, member := range pkg.Members {
			switch member := member.(type) {
			case *ssa.Function:
				if len(member.Blocks) > 0 {
					funs = append(funs, member)
				}
			case *ssa.Type:
				// Methods with value and pointer receivers.
				for _, sel := range typeMethods(pkg.Prog, member) {
					if len(sel.Blocks) > 0 {
						funs = append(funs, sel)
					}
				}
			}
		}
	}

	sort.Slice(funs, func(i, j int) bool { return funs[i].String() < funs[j].String() })
	return funs
}

func typeMethods(prog *ssa.Program, t *ssa.Type) []*ssa.Function {
	var methods []*ssa.Function
	mset := prog.MethodSets.MethodSet(t.Type())
	for i, n := 0, mset.Len(); i < n; i++ {
		if m := prog.MethodValue(mset.At(i)); m != nil {
			methods = append(methods, m)
		}
	}
	return methods
}
