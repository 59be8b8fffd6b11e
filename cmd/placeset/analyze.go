package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/ssa"

	"github.com/placeset/aliases"
	"github.com/placeset/aliases/frontend"
	"github.com/placeset/aliases/ir"
)

type analyzeArgs struct {
	Patterns   []string
	FuncFilter string
	Parallel   int
	Mutations  bool
	Config     aliases.Config
}

// functionReport is the analysis result for one function, already
// rendered to strings so reporting needs no engine access.
type functionReport struct {
	Name       string
	Places     int
	Loans      int
	Definitely int
	Possibly   int

	// Mutations has one row per mutation: location, status, mutated
	// place, inputs. Filled only when the mutation report is requested.
	Mutations [][4]string

	Err error
}

func analyze(out io.Writer, args analyzeArgs) error {
	pkgs, err := frontend.LoadPackages(args.Patterns...)
	if err != nil {
		return err
	}
	_, spkgs := frontend.BuildSSA(pkgs)

	funs := frontend.SourceFunctions(spkgs)
	if args.FuncFilter != "" {
		re, err := regexp.Compile(args.FuncFilter)
		if err != nil {
			return fmt.Errorf("invalid function filter: %w", err)
		}
		filtered := funs[:0]
		for _, fn := range funs {
			if re.MatchString(fn.String()) {
				filtered = append(filtered, fn)
			}
		}
		funs = filtered
	}

	if len(funs) == 0 {
		fmt.Fprintln(out, "no functions matched")
		return nil
	}

	// One engine per function; engines are not shared across goroutines.
	reports := make([]functionReport, len(funs))

	var group errgroup.Group
	if args.Parallel > 0 {
		group.SetLimit(args.Parallel)
	}
	for i, fn := range funs {
		group.Go(func() error {
			reports[i] = analyzeFunction(fn, args.Config, args.Mutations)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	renderSummary(out, reports)
	if args.Mutations {
		for _, report := range reports {
			if report.Err == nil && len(report.Mutations) > 0 {
				renderMutations(out, report)
			}
		}
	}

	failed := 0
	for _, report := range reports {
		if report.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d functions failed to analyze", failed, len(reports))
	}
	return nil
}

func analyzeFunction(fn *ssa.Function, cfg aliases.Config, withMutations bool) functionReport {
	report := functionReport{Name: fn.String()}

	tr, err := frontend.Translate(fn)
	if err != nil {
		report.Err = err
		return report
	}

	engine, err := aliases.Build(tr.Body, tr.Facts, cfg)
	if err != nil {
		slog.Error("analysis failed", "function", report.Name, "error", err)
		report.Err = err
		return report
	}

	report.Places = len(tr.Body.Locals)
	for _, arg := range engine.LocationDomain().ArgPlaces() {
		report.Loans += engine.Aliases(arg).Len()
	}

	visitor := aliases.NewModularMutationVisitor(engine, func(loc ir.Location, muts []aliases.Mutation) {
		for _, m := range muts {
			switch m.Status {
			case aliases.Definitely:
				report.Definitely++
			case aliases.Possibly:
				report.Possibly++
			}
			if withMutations {
				report.Mutations = append(report.Mutations, [4]string{
					loc.String(),
					m.Status.String(),
					renderPlace(tr.Body, m.Mutated),
					renderPlaces(tr.Body, m.Inputs),
				})
			}
		}
	})
	visitor.VisitBody()

	slog.Debug("analyzed function",
		"function", report.Name,
		"places", report.Places,
		"definitely", report.Definitely,
		"possibly", report.Possibly,
	)
	return report
}

// renderPlace substitutes the declared local name for the local index,
// so reports read "(*p).x" rather than "(*_1).0".
func renderPlace(body *ir.Body, p ir.Place) string {
	s := p.String()
	name := body.Locals[p.Local].Name
	if name == "" {
		return s
	}
	return strings.Replace(s, "_"+strconv.Itoa(int(p.Local)), name, 1)
}

func renderPlaces(body *ir.Body, ps []ir.Place) string {
	if len(ps) == 0 {
		return "-"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = renderPlace(body, p)
	}
	return strings.Join(parts, ", ")
}

func renderSummary(out io.Writer, reports []functionReport) {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Function", "Places", "Arg Aliases", "Definite", "Possible"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
	})

	sort.Slice(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	for _, report := range reports {
		if report.Err != nil {
			table.Append([]string{report.Name, "-", "-", "-", "-"})
			continue
		}
		table.Append([]string{
			report.Name,
			strconv.Itoa(report.Places),
			strconv.Itoa(report.Loans),
			strconv.Itoa(report.Definitely),
			strconv.Itoa(report.Possibly),
		})
	}
	table.Render()

	fmt.Fprintln(out, buf.String())
}

func renderMutations(out io.Writer, report functionReport) {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Location", "Status", "Mutated", "Inputs"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})

	for _, row := range report.Mutations {
		table.Append(row[:])
	}
	table.Render()

	fmt.Fprintf(out, "%s:\n%s\n", report.Name, buf.String())
}